package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

// DefaultSweepInterval bounds the worst-case latency between a session's true
// end and its reconciliation.
const DefaultSweepInterval = time.Minute

// Sweeper is the single global background loop that completes sessions whose
// end time has passed while still Ongoing, then reconciles them. It runs
// server-side, independent of any UI session; there are no per-session timers.
type Sweeper struct {
	svc      Service
	logger   core.Logger
	interval time.Duration
}

func NewSweeper(svc Service, logger core.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		svc:      svc,
		logger:   logger,
		interval: interval,
	}
}

// Run ticks until ctx is cancelled. Blocking; callers run it in a goroutine.
func (sw *Sweeper) Run(ctx context.Context) {
	sw.logger.Info(fmt.Sprintf("sweep: started, interval %s", sw.interval))
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("sweep: stopped")
			return
		case <-ticker.C:
			sw.Tick(ctx)
		}
	}
}

// Tick expires and reconciles every overdue Ongoing session. A failure on one
// session is logged and skipped; it never aborts the rest of the tick.
func (sw *Sweeper) Tick(ctx context.Context) {
	sessions, err := sw.svc.Query(ctx, QueryFilter{Status: Ongoing})
	if err != nil {
		sw.logger.Error(fmt.Sprintf("sweep: querying ongoing sessions: %v", err), err)
		return
	}

	now := nowFunc()
	for i := range sessions {
		session := sessions[i]
		if !session.Overdue(now) {
			continue
		}
		if err := sw.sweepOne(ctx, session); err != nil {
			sw.logger.Error(fmt.Sprintf("sweep: session %s: %v", session.ID, err), err)
		}
	}
}

func (sw *Sweeper) sweepOne(ctx context.Context, session Session) error {
	completed, err := sw.svc.Expire(ctx, session)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// lost the race to an interactive End; reconciliation is theirs
			return nil
		}
		return err
	}

	appended, err := sw.svc.Reconcile(ctx, completed)
	if err != nil {
		return err
	}
	sw.logger.Info(fmt.Sprintf("sweep: completed session %s, %d absence(s) appended", session.ID, appended))
	return nil
}
