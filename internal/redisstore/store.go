// Package redisstore keeps services, bookings and blocked dates as JSON documents in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"heyu/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	KeyBookings     = "heyu:bookings"
	KeyServices     = "heyu:services"
	KeyBlockedDates = "heyu:blocked_dates"
)

// maxTxRetries bounds optimistic-lock retries when a watched key changes mid-transaction.
const maxTxRetries = 10

// Store implements the storage interfaces on top of a single Redis client.
type Store struct {
	client *redis.Client
	logger *zerolog.Logger
}

func New(client *redis.Client, logger *zerolog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

type bookingsDoc struct {
	Bookings    []models.Booking `json:"bookings"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

type servicesDoc struct {
	Services    []models.Service `json:"services"`
	LastUpdated time.Time        `json:"lastUpdated"`
}

type blockedDoc struct {
	BlockedDates []models.BlockedDate `json:"blockedDates"`
	LastUpdated  time.Time            `json:"lastUpdated"`
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// load decodes the document at key. Documents saved as a bare JSON array are accepted as well.
func load[T any](ctx context.Context, g getter, key string, wrap func(*[]T) any) ([]T, error) {
	raw, err := g.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var items []T
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		return items, nil
	}
	if err := json.Unmarshal(raw, wrap(&items)); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return items, nil
}

func (s *Store) bookings(ctx context.Context, g getter) ([]models.Booking, error) {
	return load(ctx, g, KeyBookings, func(items *[]models.Booking) any {
		return &struct {
			Bookings *[]models.Booking `json:"bookings"`
		}{items}
	})
}

func (s *Store) services(ctx context.Context, g getter) ([]models.Service, error) {
	svcs, err := load(ctx, g, KeyServices, func(items *[]models.Service) any {
		return &struct {
			Services *[]models.Service `json:"services"`
		}{items}
	})
	for i := range svcs {
		svcs[i].Normalize()
	}
	return svcs, err
}

func (s *Store) blocked(ctx context.Context, g getter) ([]models.BlockedDate, error) {
	return load(ctx, g, KeyBlockedDates, func(items *[]models.BlockedDate) any {
		return &struct {
			BlockedDates *[]models.BlockedDate `json:"blockedDates"`
		}{items}
	})
}

// update runs fn under WATCH on key and writes the returned document in MULTI/EXEC.
func (s *Store) update(ctx context.Context, key string, fn func(tx *redis.Tx) (any, error)) error {
	txf := func(tx *redis.Tx) error {
		doc, err := fn(tx)
		if err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().Str("key", key).Int("attempt", i+1).Msg("Optimistic lock failed, retrying")
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: too many concurrent modifications", key)
}

// --- services ---

func (s *Store) ListServices(ctx context.Context) ([]models.Service, error) {
	return s.services(ctx, s.client)
}

func (s *Store) GetService(ctx context.Context, id int64) (*models.Service, error) {
	all, err := s.services(ctx, s.client)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, models.ErrNotFound
}

// SaveService replaces the service with the same ID or appends it with ID max+1.
func (s *Store) SaveService(ctx context.Context, svc *models.Service) error {
	return s.update(ctx, KeyServices, func(tx *redis.Tx) (any, error) {
		all, err := s.services(ctx, tx)
		if err != nil {
			return nil, err
		}
		svc.Normalize()

		replaced := false
		if svc.ID != 0 {
			for i := range all {
				if all[i].ID == svc.ID {
					all[i] = *svc
					replaced = true
					break
				}
			}
		}
		if !replaced {
			if svc.ID == 0 {
				var maxID int64
				for _, existing := range all {
					maxID = max(maxID, existing.ID)
				}
				svc.ID = maxID + 1
			}
			all = append(all, *svc)
		}
		return servicesDoc{Services: all, LastUpdated: time.Now().UTC()}, nil
	})
}

// --- bookings ---

// CreateBooking appends b unless another booking already starts at the same date and time.
func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	models.NormalizeBooking(b)
	return s.update(ctx, KeyBookings, func(tx *redis.Tx) (any, error) {
		all, err := s.bookings(ctx, tx)
		if err != nil {
			return nil, err
		}
		for _, existing := range all {
			if existing.SelectedDate == b.SelectedDate && existing.SelectedTime == b.SelectedTime {
				return nil, models.ErrSlotTaken
			}
		}
		all = append(all, *b)
		return bookingsDoc{Bookings: all, LastUpdated: time.Now().UTC()}, nil
	})
}

// ListBookings returns every booking, newest first.
func (s *Store) ListBookings(ctx context.Context) ([]models.Booking, error) {
	all, err := s.bookings(ctx, s.client)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}

func (s *Store) BookingsByDate(ctx context.Context, date string) ([]models.Booking, error) {
	all, err := s.bookings(ctx, s.client)
	if err != nil {
		return nil, err
	}
	var out []models.Booking
	for _, b := range all {
		if b.SelectedDate == date {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SelectedTime < out[j].SelectedTime })
	return out, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	all, err := s.bookings(ctx, s.client)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].BookingID == id {
			return &all[i], nil
		}
	}
	return nil, models.ErrNotFound
}

// DeleteAllBookings resets the bookings document to an empty list.
func (s *Store) DeleteAllBookings(ctx context.Context) (int64, error) {
	var n int64
	err := s.update(ctx, KeyBookings, func(tx *redis.Tx) (any, error) {
		all, err := s.bookings(ctx, tx)
		if err != nil {
			return nil, err
		}
		n = int64(len(all))
		return bookingsDoc{Bookings: []models.Booking{}, LastUpdated: time.Now().UTC()}, nil
	})
	return n, err
}

func (s *Store) UpcomingBookings(ctx context.Context, fromDate, toDate string) ([]models.Booking, error) {
	all, err := s.bookings(ctx, s.client)
	if err != nil {
		return nil, err
	}
	var out []models.Booking
	for _, b := range all {
		if b.ReminderSent || b.Status != models.StatusConfirmed {
			continue
		}
		if b.SelectedDate >= fromDate && b.SelectedDate <= toDate {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SelectedDate != out[j].SelectedDate {
			return out[i].SelectedDate < out[j].SelectedDate
		}
		return out[i].SelectedTime < out[j].SelectedTime
	})
	return out, nil
}

func (s *Store) MarkReminderSent(ctx context.Context, id string) error {
	return s.update(ctx, KeyBookings, func(tx *redis.Tx) (any, error) {
		all, err := s.bookings(ctx, tx)
		if err != nil {
			return nil, err
		}
		for i := range all {
			if all[i].BookingID == id {
				all[i].ReminderSent = true
				return bookingsDoc{Bookings: all, LastUpdated: time.Now().UTC()}, nil
			}
		}
		return nil, models.ErrNotFound
	})
}

// --- blocked dates ---

func (s *Store) ListBlockedDates(ctx context.Context) ([]models.BlockedDate, error) {
	all, err := s.blocked(ctx, s.client)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date < all[j].Date })
	return all, nil
}

func (s *Store) GetBlockedDate(ctx context.Context, date string) (*models.BlockedDate, error) {
	all, err := s.blocked(ctx, s.client)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Date == date {
			return &all[i], nil
		}
	}
	return nil, models.ErrNotFound
}

// SaveBlockedDate replaces the record for b.Date or appends it.
func (s *Store) SaveBlockedDate(ctx context.Context, b models.BlockedDate) error {
	return s.update(ctx, KeyBlockedDates, func(tx *redis.Tx) (any, error) {
		all, err := s.blocked(ctx, tx)
		if err != nil {
			return nil, err
		}
		replaced := false
		for i := range all {
			if all[i].Date == b.Date {
				all[i] = b
				replaced = true
				break
			}
		}
		if !replaced {
			all = append(all, b)
		}
		return blockedDoc{BlockedDates: all, LastUpdated: time.Now().UTC()}, nil
	})
}

func (s *Store) DeleteBlockedDate(ctx context.Context, date string) error {
	return s.update(ctx, KeyBlockedDates, func(tx *redis.Tx) (any, error) {
		all, err := s.blocked(ctx, tx)
		if err != nil {
			return nil, err
		}
		for i := range all {
			if all[i].Date == date {
				all = append(all[:i], all[i+1:]...)
				return blockedDoc{BlockedDates: all, LastUpdated: time.Now().UTC()}, nil
			}
		}
		return nil, models.ErrNotFound
	})
}
