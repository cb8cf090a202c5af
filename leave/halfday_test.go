package leave_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

func TestHalfDayCalculator_Deduction(t *testing.T) {
	tests := []struct {
		scheduled string
		want      string
	}{
		{"8", "0.5"},
		{"5.0", "0.5"},
		{"5", "0.5"},
		{"4.99", "1"},
		{"2", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.scheduled+"h", func(t *testing.T) {
			got := leave.HalfDayCalculator{}.Deduction(days(tt.scheduled))
			assert.True(t, got.Equal(days(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestHalfDayCalculator_CheckConflict(t *testing.T) {
	req := halfDay("e1", leave.LeaveCasual, "2024-11-04", "8")

	assert.Nil(t, leave.HalfDayCalculator{}.CheckConflict(req))

	req.IsWorkFromHome = true
	assert.Nil(t, leave.HalfDayCalculator{}.CheckConflict(req))

	req.IsOffice = true
	rej := leave.HalfDayCalculator{}.CheckConflict(req)
	require.NotNil(t, rej)
	assert.Equal(t, leave.RejectConflictingHalfDayMode, rej.Code)

	// Full-day requests never conflict
	req.IsHalfDay = false
	assert.Nil(t, leave.HalfDayCalculator{}.CheckConflict(req))
}
