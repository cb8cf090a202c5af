package leave

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// MinTenureDays is the tenure required for a paid absence, in days.
var MinTenureDays = decimal.RequireFromString("365.25")

// PaidAbsenceProcessor validates one-off paid absences (marriage, paternity,
// maternity). Deductions are fixed by the leave-type table.
type PaidAbsenceProcessor struct {
	Catalog *Catalog
	Now     func() time.Time
}

// Process checks, in order: absence type, employment stage, tenure,
// disciplinary flag, first child.
func (p PaidAbsenceProcessor) Process(emp Employee, req PaidAbsenceRequest) ValidationResult {
	lt, ok := p.Catalog.Lookup(req.AbsenceType)
	if !ok || !lt.IsPaidAbsence {
		return Rejected(reject(RejectUnknownAbsenceType, "unknown absence type %q", req.AbsenceType))
	}

	if emp.Stage != StageConfirmed {
		return Rejected(reject(RejectIneligibleLeaveType,
			"%s is only available to confirmed employees (current stage: %s)", lt.Name, emp.Stage))
	}

	asOf := req.StartDate
	if asOf.IsZero() {
		asOf = p.today()
	}
	tenure := emp.JoiningDate.DaysUntil(asOf)
	if decimal.NewFromInt(int64(tenure)).LessThan(MinTenureDays) {
		r := reject(RejectTenureNotMet,
			"%s requires at least one year of service; %d days served as of %s", lt.Name, tenure, asOf)
		r.Details.TenureDays = intPtr(tenure)
		return Rejected(r)
	}

	if emp.Disciplinary {
		return Rejected(reject(RejectDisciplinaryDisqualified,
			"%s is not available while a disciplinary action is on record", lt.Name))
	}

	if lt.RequiresFirstChild && !req.IsFirstChild {
		return Rejected(reject(RejectNotFirstChild, "%s is granted for the first child only", lt.Name))
	}

	return ValidationResult{
		Valid:         true,
		Message:       lt.Name + " approved for validation",
		DeductionDays: lt.AnnualAllocationDays,
	}
}

func (p PaidAbsenceProcessor) today() generic.Date {
	if p.Now != nil {
		return generic.DateOf(p.Now())
	}
	return generic.DateOf(time.Now())
}
