package availability

import "heyu/internal/models"

// BlockTime returns the record for date after blocking slot.
// A full-day block is returned unchanged; once every admin slot is blocked the record collapses to a full-day block.
func (e *Engine) BlockTime(existing *models.BlockedDate, date, slot string) models.BlockedDate {
	if existing != nil && existing.IsFullDay() {
		return *existing
	}

	var times []string
	if existing != nil {
		times = append(times, existing.Times...)
	}
	times = append(times, slot)
	updated := models.PartialBlock(date, times...)

	all := e.AdminSlots(date)
	if len(all) > 0 && coversAll(updated, all) {
		return models.FullDayBlock(date)
	}
	return updated
}

// UnblockTime returns the record after releasing slot. ok is false when the record should be deleted.
// Releasing one time from a full-day block converts it to a partial block of every other admin slot.
func (e *Engine) UnblockTime(existing models.BlockedDate, slot string) (updated models.BlockedDate, ok bool) {
	var source []string
	if existing.IsFullDay() {
		source = e.AdminSlots(existing.Date)
	} else {
		source = existing.Times
	}

	remaining := make([]string, 0, len(source))
	for _, t := range source {
		if t != slot {
			remaining = append(remaining, t)
		}
	}
	if len(remaining) == 0 {
		return models.BlockedDate{}, false
	}
	return models.PartialBlock(existing.Date, remaining...), true
}

func coversAll(b models.BlockedDate, slots []string) bool {
	for _, s := range slots {
		if !b.Blocks(s) {
			return false
		}
	}
	return true
}
