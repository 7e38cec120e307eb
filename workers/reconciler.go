package workers

import (
	"context"
	"time"

	"ringback/automation"

	"github.com/rs/zerolog/log"
)

// StartReconciler runs the periodic config reconcile on a fixed interval,
// independent of call events, and opportunistically flushes processed call
// records to the backend. Safe to run while a call is in flight: per-call
// reads work off a snapshot.
func StartReconciler(sync *automation.Synchronizer, ledger *automation.Ledger, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// one pass at startup so a fresh install picks up remote settings
		runReconcile(sync, ledger)

		for range ticker.C {
			runReconcile(sync, ledger)
		}
	}()
}

func runReconcile(sync *automation.Synchronizer, ledger *automation.Ledger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sync.Reconcile(ctx)
	sync.UploadCalls(ctx, ledger)
	log.Debug().Str("component", "reconciler").Msg("reconcile pass done")
}
