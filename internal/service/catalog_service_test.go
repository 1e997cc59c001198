package service

import (
	"context"
	"testing"

	"heyu/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_List(t *testing.T) {
	store := new(mockServiceStore)
	svc := NewCatalogService(store, discardLogger())

	store.On("ListServices", mock.Anything).Return([]models.Service{
		{ID: 1, Category: models.CategoryBasicNails},
		{ID: 2, Category: models.CategoryExtension},
		{ID: 3, Category: models.CategoryBasicNails},
	}, nil)

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	basic, err := svc.List(context.Background(), string(models.CategoryBasicNails))
	require.NoError(t, err)
	require.Len(t, basic, 2)
	assert.Equal(t, int64(3), basic[1].ID)
}

func TestCatalogService_UpsertMergesExisting(t *testing.T) {
	store := new(mockServiceStore)
	svc := NewCatalogService(store, discardLogger())

	existing := &models.Service{ID: 2, NameEn: "Extension", Duration: "5小时", DurationHours: 5, Price: "¥400"}
	store.On("GetService", mock.Anything, int64(2)).Return(existing, nil).Once()
	store.On("SaveService", mock.Anything, mock.AnythingOfType("*models.Service")).Return(nil).Once()

	got, created, err := svc.Upsert(context.Background(), ServiceInput{ID: 2, Price: ptr("¥480"), Duration: ptr("4小时")})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Extension", got.NameEn)
	assert.Equal(t, "¥480", got.Price)
	assert.Equal(t, "4小时", got.Duration)
	assert.Equal(t, 0, got.DurationHours, "hours are re-derived by the store on save")
	store.AssertExpectations(t)
}

func TestCatalogService_UpsertCreates(t *testing.T) {
	store := new(mockServiceStore)
	svc := NewCatalogService(store, discardLogger())

	store.On("SaveService", mock.Anything, mock.AnythingOfType("*models.Service")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.Service).ID = 7 }).
		Return(nil).Once()

	got, created, err := svc.Upsert(context.Background(), ServiceInput{NameEn: ptr("Removal")})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(7), got.ID)
	store.AssertNotCalled(t, "GetService", mock.Anything, mock.Anything)
}

func TestCatalogService_UpsertUnknownIDCreates(t *testing.T) {
	store := new(mockServiceStore)
	svc := NewCatalogService(store, discardLogger())

	store.On("GetService", mock.Anything, int64(42)).Return(nil, models.ErrNotFound).Once()
	store.On("SaveService", mock.Anything, mock.MatchedBy(func(s *models.Service) bool { return s.ID == 42 })).Return(nil).Once()

	got, created, err := svc.Upsert(context.Background(), ServiceInput{ID: 42, NameEn: ptr("Art")})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(42), got.ID)
}
