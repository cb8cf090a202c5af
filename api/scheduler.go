/*
scheduler.go - Periodic balance-cache refresher

PURPOSE:
  Accrual-based balances grow every month without any application being
  approved, so cached LeaveBalance rows go stale on the 1st. The refresher
  periodically rebuilds the rows for the current year.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Runs once immediately on Start
  - A failed run is logged and retried on the next tick

USAGE:
  refresher := NewBalanceRefresher(svc, time.Hour, logger)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - leave/service.go: RefreshBalances
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/leave"
)

// BalanceRefresher periodically rebuilds cached balance rows.
type BalanceRefresher struct {
	Service  *leave.Service
	Interval time.Duration
	Enabled  bool

	logger *zap.Logger
	now    func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	statsMu  sync.Mutex
	lastRun  time.Time
	lastRows int
}

// NewBalanceRefresher creates an enabled refresher.
func NewBalanceRefresher(svc *leave.Service, interval time.Duration, logger ...*zap.Logger) *BalanceRefresher {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &BalanceRefresher{
		Service:  svc,
		Interval: interval,
		Enabled:  true,
		logger:   l.Named("leave.scheduler"),
		now:      time.Now,
	}
}

// Start begins the refresher.
func (br *BalanceRefresher) Start() {
	br.mu.Lock()
	defer br.mu.Unlock()

	if !br.Enabled {
		br.logger.Info("balance refresher disabled, not starting")
		return
	}
	if br.ticker != nil {
		return
	}

	br.ticker = time.NewTicker(br.Interval)
	br.stop = make(chan struct{})
	br.wg.Add(1)
	go br.run(br.ticker, br.stop)

	br.logger.Info("balance refresher started", zap.Duration("interval", br.Interval))
}

// Stop stops the refresher and waits for an in-flight run.
func (br *BalanceRefresher) Stop() {
	br.mu.Lock()
	defer br.mu.Unlock()

	if br.ticker == nil {
		return
	}
	br.ticker.Stop()
	close(br.stop)
	br.wg.Wait()
	br.ticker = nil
	br.logger.Info("balance refresher stopped")
}

func (br *BalanceRefresher) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer br.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	br.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			br.RunOnce(ctx)
		case <-stop:
			return
		}
	}
}

// RunOnce refreshes the current year's rows.
func (br *BalanceRefresher) RunOnce(ctx context.Context) (int, error) {
	year := br.now().Year()
	rows, err := br.Service.RefreshBalances(ctx, year)
	if err != nil {
		br.logger.Error("balance refresh failed", zap.Int("year", year), zap.Error(err))
		return rows, err
	}

	br.statsMu.Lock()
	br.lastRun = br.now()
	br.lastRows = rows
	br.statsMu.Unlock()

	br.logger.Debug("balance refresh completed", zap.Int("year", year), zap.Int("rows", rows))
	return rows, nil
}

// LastRun returns when the last successful run finished and how many rows
// it wrote.
func (br *BalanceRefresher) LastRun() (time.Time, int) {
	br.statsMu.Lock()
	defer br.statsMu.Unlock()
	return br.lastRun, br.lastRows
}
