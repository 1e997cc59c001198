package service

import (
	"context"
	"errors"

	"heyu/internal/models"

	"github.com/rs/zerolog"
)

// ServiceInput is a partial catalog entry; nil fields keep their stored value on update.
type ServiceInput struct {
	ID            int64            `json:"id"`
	NameCn        *string          `json:"nameCn"`
	NameEn        *string          `json:"nameEn"`
	Category      *models.Category `json:"category"`
	Duration      *string          `json:"duration"`
	DurationEn    *string          `json:"durationEn"`
	DurationHours *int             `json:"durationHours"`
	Price         *string          `json:"price"`
	Description   *string          `json:"description"`
	DescriptionCn *string          `json:"descriptionCn"`
	IsAddOn       *bool            `json:"isAddOn"`
}

func (in ServiceInput) applyTo(s *models.Service) {
	setIf(&s.NameCn, in.NameCn)
	setIf(&s.NameEn, in.NameEn)
	setIf(&s.Category, in.Category)
	setIf(&s.DurationEn, in.DurationEn)
	setIf(&s.Price, in.Price)
	setIf(&s.Description, in.Description)
	setIf(&s.DescriptionCn, in.DescriptionCn)
	setIf(&s.IsAddOn, in.IsAddOn)
	if in.Duration != nil {
		s.Duration = *in.Duration
		// Re-derive hours from the new text unless they are given explicitly.
		s.DurationHours = 0
	}
	setIf(&s.DurationHours, in.DurationHours)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// CatalogService exposes the service catalog.
type CatalogService struct {
	store  ServiceStore
	logger *zerolog.Logger
}

func NewCatalogService(store ServiceStore, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

// List returns the catalog, optionally restricted to one category.
func (c *CatalogService) List(ctx context.Context, category string) ([]models.Service, error) {
	all, err := c.store.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return all, nil
	}
	out := make([]models.Service, 0, len(all))
	for _, s := range all {
		if string(s.Category) == category {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *CatalogService) Get(ctx context.Context, id int64) (*models.Service, error) {
	return c.store.GetService(ctx, id)
}

// Upsert merges in onto the service with the same ID, or creates a new one.
// created reports whether a new entry was added.
func (c *CatalogService) Upsert(ctx context.Context, in ServiceInput) (svc *models.Service, created bool, err error) {
	if in.ID != 0 {
		existing, err := c.store.GetService(ctx, in.ID)
		switch {
		case err == nil:
			in.applyTo(existing)
			if err := c.store.SaveService(ctx, existing); err != nil {
				return nil, false, err
			}
			c.logger.Info().Int64("service_id", existing.ID).Msg("Service updated")
			return existing, false, nil
		case !errors.Is(err, models.ErrNotFound):
			return nil, false, err
		}
	}

	fresh := &models.Service{ID: in.ID}
	in.applyTo(fresh)
	if err := c.store.SaveService(ctx, fresh); err != nil {
		return nil, false, err
	}
	c.logger.Info().Int64("service_id", fresh.ID).Msg("Service created")
	return fresh, true, nil
}
