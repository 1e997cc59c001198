package redisstore

import (
	"context"
	"fmt"
	"strings"
)

var exportTables = []string{"bookings", "services", "blocked_dates"}

// GetTableNames lists the documents exported in audit reports.
func (s *Store) GetTableNames(ctx context.Context) ([]string, error) {
	return exportTables, nil
}

// GetTableData flattens a document into rows keyed by column name.
func (s *Store) GetTableData(ctx context.Context, tableName string) ([]map[string]any, []string, error) {
	switch tableName {
	case "bookings":
		all, err := s.ListBookings(ctx)
		if err != nil {
			return nil, nil, err
		}
		cols := []string{"booking_id", "service_id", "service_name", "selected_date", "selected_time",
			"duration_hours", "name", "wechat_name", "email", "phone", "wechat", "status", "reminder_sent", "created_at"}
		rows := make([]map[string]any, 0, len(all))
		for _, b := range all {
			rows = append(rows, map[string]any{
				"booking_id":     b.BookingID,
				"service_id":     b.Service.ID,
				"service_name":   b.Service.NameEn,
				"selected_date":  b.SelectedDate,
				"selected_time":  b.SelectedTime,
				"duration_hours": b.DurationHours,
				"name":           b.Name,
				"wechat_name":    b.WechatName,
				"email":          b.Email,
				"phone":          b.Phone,
				"wechat":         b.Wechat,
				"status":         b.Status,
				"reminder_sent":  b.ReminderSent,
				"created_at":     b.CreatedAt,
			})
		}
		return rows, cols, nil

	case "services":
		all, err := s.ListServices(ctx)
		if err != nil {
			return nil, nil, err
		}
		cols := []string{"id", "name_cn", "name_en", "category", "duration", "duration_hours", "price", "is_add_on"}
		rows := make([]map[string]any, 0, len(all))
		for _, svc := range all {
			rows = append(rows, map[string]any{
				"id":             svc.ID,
				"name_cn":        svc.NameCn,
				"name_en":        svc.NameEn,
				"category":       string(svc.Category),
				"duration":       svc.Duration,
				"duration_hours": svc.DurationHours,
				"price":          svc.Price,
				"is_add_on":      svc.IsAddOn,
			})
		}
		return rows, cols, nil

	case "blocked_dates":
		all, err := s.ListBlockedDates(ctx)
		if err != nil {
			return nil, nil, err
		}
		cols := []string{"date", "full_day", "times"}
		rows := make([]map[string]any, 0, len(all))
		for _, b := range all {
			rows = append(rows, map[string]any{
				"date":     b.Date,
				"full_day": b.IsFullDay(),
				"times":    strings.Join(b.Times, ","),
			})
		}
		return rows, cols, nil
	}
	return nil, nil, fmt.Errorf("invalid table name: %s", tableName)
}
