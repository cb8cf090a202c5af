package leave

import (
	"context"
	"strings"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// DATE RANGE VALIDATOR
// =============================================================================

// DateRangeValidator refuses any span that touches a public holiday or a
// weekend. Requests are never partially accepted.
type DateRangeValidator struct {
	Calendar Calendar
}

// Validate checks holidays first (reporting all of them), then weekends
// (reporting the first one).
func (v DateRangeValidator) Validate(ctx context.Context, r generic.Range, country string) (*Rejection, error) {
	holidays, err := v.Calendar.HolidaysBetween(ctx, r, country)
	if err != nil {
		return nil, err
	}
	if len(holidays) > 0 {
		refs := make([]HolidayRef, 0, len(holidays))
		names := make([]string, 0, len(holidays))
		for _, h := range holidays {
			refs = append(refs, HolidayRef{Date: h.Date, Name: h.Name})
			names = append(names, h.Name+" ("+h.Date.String()+")")
		}
		rej := reject(RejectHolidayInRange,
			"leave cannot include public holidays: %s", strings.Join(names, ", "))
		rej.Details.Holidays = refs
		return rej, nil
	}

	for _, d := range r.Days() {
		if v.Calendar.IsWeekend(d) {
			day := d
			rej := reject(RejectWeekendInRange,
				"leave cannot include weekends: %s is a %s", d, d.Weekday())
			rej.Details.WeekendDate = &day
			return rej, nil
		}
	}
	return nil, nil
}
