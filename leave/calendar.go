package leave

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// CALENDAR - Weekend / public-holiday classification
// =============================================================================

// Calendar classifies days as working or non-working for a country.
type Calendar struct {
	Holidays HolidayCalendar
}

// IsWeekend is true on Saturdays and Sundays.
func (c Calendar) IsWeekend(d generic.Date) bool {
	return d.IsWeekend()
}

// IsPublicHoliday is true iff an active holiday matches (date, country).
func (c Calendar) IsPublicHoliday(ctx context.Context, d generic.Date, country string) (bool, error) {
	ok, err := c.Holidays.IsHoliday(ctx, d, country)
	if err != nil {
		return false, generic.Unavailable("holiday calendar", "is holiday "+d.String(), err)
	}
	return ok, nil
}

// IsWorkingDay is !IsWeekend && !IsPublicHoliday.
func (c Calendar) IsWorkingDay(ctx context.Context, d generic.Date, country string) (bool, error) {
	if c.IsWeekend(d) {
		return false, nil
	}
	holiday, err := c.IsPublicHoliday(ctx, d, country)
	if err != nil {
		return false, err
	}
	return !holiday, nil
}

// HolidaysBetween returns the active holidays inside r.
func (c Calendar) HolidaysBetween(ctx context.Context, r generic.Range, country string) ([]PublicHoliday, error) {
	hs, err := c.Holidays.HolidaysBetween(ctx, r, country)
	if err != nil {
		return nil, generic.Unavailable("holiday calendar", "holidays between "+r.String(), err)
	}
	active := hs[:0:0]
	for _, h := range hs {
		if h.Active && r.Contains(h.Date) {
			active = append(active, h)
		}
	}
	return active, nil
}

// CountWorkingDays counts working days in [start, end], inclusive. One range
// query is issued instead of a lookup per day.
func (c Calendar) CountWorkingDays(ctx context.Context, start, end generic.Date, country string) (int, error) {
	r := generic.Range{Start: start, End: end}
	if !r.Valid() {
		return 0, nil
	}
	holidays, err := c.HolidaysBetween(ctx, r, country)
	if err != nil {
		return 0, err
	}
	off := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		off[h.Date.String()] = true
	}

	count := 0
	for _, d := range r.Days() {
		if !d.IsWeekend() && !off[d.String()] {
			count++
		}
	}
	return count, nil
}
