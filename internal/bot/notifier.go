package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"heyu/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// AdminNotifier posts booking activity and export files to the admin chats.
type AdminNotifier struct {
	sender  TelegramSender
	chatIDs []int64
	logger  *zerolog.Logger
}

// New connects to the Bot API with token.
func New(token string, chatIDs []int64, logger *zerolog.Logger) (*AdminNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	if logger != nil {
		logger.Info().Str("username", api.Self.UserName).Int("admins", len(chatIDs)).Msg("Telegram bot authorized")
	}
	return NewAdminNotifier(api, chatIDs, logger), nil
}

func NewAdminNotifier(sender TelegramSender, chatIDs []int64, logger *zerolog.Logger) *AdminNotifier {
	return &AdminNotifier{sender: sender, chatIDs: chatIDs, logger: logger}
}

// Enabled reports whether there is anyone to notify.
func (n *AdminNotifier) Enabled() bool {
	return n != nil && n.sender != nil && len(n.chatIDs) > 0
}

// NotifyBooking announces a new booking.
func (n *AdminNotifier) NotifyBooking(ctx context.Context, b models.Booking) error {
	return n.SendText(ctx, FormatBooking(b))
}

// SendText delivers text to every admin chat and joins the per-chat errors.
func (n *AdminNotifier) SendText(ctx context.Context, text string) error {
	if !n.Enabled() {
		return nil
	}
	var errs []error
	for _, chatID := range n.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.sender.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// SendDocument uploads a file to every admin chat.
func (n *AdminNotifier) SendDocument(ctx context.Context, filename string, data io.Reader, caption string) error {
	if !n.Enabled() {
		return nil
	}
	content, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	var errs []error
	for _, chatID := range n.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: content})
		doc.Caption = caption
		if _, err := n.sender.Send(doc); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
			continue
		}
		if n.logger != nil {
			n.logger.Debug().Int64("chat_id", chatID).Str("file", filename).Msg("Document sent")
		}
	}
	return errors.Join(errs...)
}

// FormatBooking renders the admin message for a new booking.
func FormatBooking(b models.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🆕 New booking %s\n", b.BookingID)
	fmt.Fprintf(&sb, "💅 %s", b.Service.NameEn)
	if b.Service.NameCn != "" {
		fmt.Fprintf(&sb, " | %s", b.Service.NameCn)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "📅 %s %s (%dh)\n", b.SelectedDate, b.SelectedTime, b.Hours())
	fmt.Fprintf(&sb, "👤 %s (WeChat: %s)\n", b.Name, b.WechatName)
	fmt.Fprintf(&sb, "📞 %s\n✉️ %s", b.Phone, b.Email)
	if b.Wechat != "" {
		fmt.Fprintf(&sb, "\n🆔 %s", b.Wechat)
	}
	return sb.String()
}
