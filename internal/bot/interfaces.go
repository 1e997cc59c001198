package bot

import (
	"context"

	"heyu/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender is the part of *tgbotapi.BotAPI the notifier uses.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BookingSource lists the bookings of one date.
type BookingSource interface {
	BookingsByDate(ctx context.Context, date string) ([]models.Booking, error)
}
