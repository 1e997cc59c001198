package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"heyu/internal/events"
	"heyu/internal/metrics"
	"heyu/internal/models"

	"github.com/rs/zerolog"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)
)

// BlockService manages admin date and time blocks.
type BlockService struct {
	store  BlockedDateStore
	avail  *AvailabilityService
	bus    EventPublisher
	locks  *dateLocks
	logger *zerolog.Logger
}

func NewBlockService(store BlockedDateStore, avail *AvailabilityService, bus EventPublisher, logger *zerolog.Logger) *BlockService {
	return &BlockService{store: store, avail: avail, bus: bus, locks: newDateLocks(), logger: logger}
}

// ValidateBlock checks date and times; times == nil means the list was absent.
func ValidateBlock(date string, times []string) error {
	var errs []string
	switch {
	case date == "":
		errs = append(errs, "date is required")
	case !datePattern.MatchString(date):
		errs = append(errs, "invalid date format, expected YYYY-MM-DD")
	}
	if times == nil {
		errs = append(errs, "times must be an array")
	} else {
		var bad []string
		for _, t := range times {
			if !timePattern.MatchString(t) {
				bad = append(bad, t)
			}
		}
		if len(bad) > 0 {
			errs = append(errs, "invalid times: "+strings.Join(bad, ", "))
		}
	}
	if len(errs) > 0 {
		return invalid(errs...)
	}
	return nil
}

func (s *BlockService) List(ctx context.Context) ([]models.BlockedDate, error) {
	return s.store.ListBlockedDates(ctx)
}

// Save replaces the record for date. An empty times list blocks the whole day.
func (s *BlockService) Save(ctx context.Context, date string, times []string) (models.BlockedDate, error) {
	if err := ValidateBlock(date, times); err != nil {
		return models.BlockedDate{}, err
	}

	record := models.FullDayBlock(date)
	if len(times) > 0 {
		record = models.PartialBlock(date, times...)
	}

	unlock := s.locks.Lock(date)
	defer unlock()

	if err := s.store.SaveBlockedDate(ctx, record); err != nil {
		return models.BlockedDate{}, err
	}
	s.changed("save", date)
	return record, nil
}

// Delete removes every block on date.
func (s *BlockService) Delete(ctx context.Context, date string) error {
	unlock := s.locks.Lock(date)
	defer unlock()

	if err := s.store.DeleteBlockedDate(ctx, date); err != nil {
		return err
	}
	s.changed("delete", date)
	return nil
}

// BlockTime adds slot to the record for date, collapsing to a full day once
// every admin slot is blocked.
func (s *BlockService) BlockTime(ctx context.Context, date, slot string) (models.BlockedDate, error) {
	if err := ValidateBlock(date, []string{slot}); err != nil {
		return models.BlockedDate{}, err
	}

	unlock := s.locks.Lock(date)
	defer unlock()

	existing, err := s.store.GetBlockedDate(ctx, date)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return models.BlockedDate{}, err
	}

	record := s.avail.Engine().BlockTime(existing, date, slot)
	if err := s.store.SaveBlockedDate(ctx, record); err != nil {
		return models.BlockedDate{}, err
	}
	s.changed("block_time", date)
	return record, nil
}

// UnblockTime removes slot from the record for date. It returns nil when the
// record was deleted because no blocked time remained.
func (s *BlockService) UnblockTime(ctx context.Context, date, slot string) (*models.BlockedDate, error) {
	unlock := s.locks.Lock(date)
	defer unlock()

	existing, err := s.store.GetBlockedDate(ctx, date)
	if err != nil {
		return nil, err
	}

	updated, keep := s.avail.Engine().UnblockTime(*existing, slot)
	if !keep {
		if err := s.store.DeleteBlockedDate(ctx, date); err != nil {
			return nil, fmt.Errorf("delete emptied block: %w", err)
		}
		s.changed("unblock_time", date)
		return nil, nil
	}

	if err := s.store.SaveBlockedDate(ctx, updated); err != nil {
		return nil, err
	}
	s.changed("unblock_time", date)
	return &updated, nil
}

func (s *BlockService) changed(op, date string) {
	metrics.IncBlockChange(op)
	s.logger.Info().Str("op", op).Str("date", date).Msg("Blocked dates changed")
	if s.bus != nil {
		s.bus.Publish(events.NewDateEvent(events.BlockedDatesChanged, date))
	}
}
