package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

func newRefresher(t *testing.T) (*BalanceRefresher, *memory.Store) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.SaveEmployee(context.Background(), leave.Employee{
		ID: "e1", Stage: leave.StageConfirmed, JoiningDate: generic.MustParseDate("2024-03-10"),
	}))
	svc := leave.NewService(store, leave.DefaultCatalog(), leave.Config{
		DefaultCountry: "IN",
		Now:            func() time.Time { return today },
	})
	br := NewBalanceRefresher(svc, time.Hour)
	br.now = func() time.Time { return today }
	return br, store
}

func TestBalanceRefresher_RunOnce(t *testing.T) {
	br, store := newRefresher(t)

	rows, err := br.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Positive(t, rows)

	cached, err := store.GetBalance(context.Background(), "e1", leave.LeaveCasual, 2024)
	require.NoError(t, err)
	assert.Equal(t, "9", cached.Accrued.String())

	last, n := br.LastRun()
	assert.Equal(t, today, last)
	assert.Equal(t, rows, n)
}

func TestBalanceRefresher_StartStop(t *testing.T) {
	br, store := newRefresher(t)

	br.Start()
	br.Start() // idempotent
	assert.Eventually(t, func() bool {
		_, err := store.GetBalance(context.Background(), "e1", leave.LeaveCasual, 2024)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	br.Stop()
	br.Stop() // idempotent
}

func TestBalanceRefresher_Disabled(t *testing.T) {
	br, store := newRefresher(t)
	br.Enabled = false

	br.Start()
	br.Stop()

	_, err := store.GetBalance(context.Background(), "e1", leave.LeaveCasual, 2024)
	assert.Error(t, err)
	last, _ := br.LastRun()
	assert.True(t, last.IsZero())
}
