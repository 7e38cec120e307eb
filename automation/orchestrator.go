package automation

import (
	"context"
	"time"

	"ringback/models"

	"github.com/rs/zerolog"
)

/************************************************
/**** MARK: CALL OUTCOMES ****/
/************************************************/
const OUTCOME_DISABLED = "disabled"
const OUTCOME_BLOCKED = "blocked"
const OUTCOME_FILTERED = "filtered"
const OUTCOME_DUPLICATE = "duplicate"
const OUTCOME_SENT = "sent"
const OUTCOME_MANUAL = "manual"

const eventTimeout = 30 * time.Second

// Orchestrator runs the per-call pipeline: enabled -> security gate ->
// contact filter -> dedup -> resolve link -> compose -> dispatch -> record.
// One consumer goroutine drains the queue so call events are processed in
// order and the monitor is never blocked waiting on the network.
type Orchestrator struct {
	queue      chan models.CallEvent
	sync       *Synchronizer
	filter     *ContactFilter
	ledger     *Ledger
	tokens     *TokenManager
	dispatcher *Dispatcher
	quit       chan struct{}
	log        zerolog.Logger
}

func NewOrchestrator(sync *Synchronizer, filter *ContactFilter, ledger *Ledger, tokens *TokenManager, dispatcher *Dispatcher, queueSize int, log zerolog.Logger) *Orchestrator {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Orchestrator{
		queue:      make(chan models.CallEvent, queueSize),
		sync:       sync,
		filter:     filter,
		ledger:     ledger,
		tokens:     tokens,
		dispatcher: dispatcher,
		quit:       make(chan struct{}),
		log:        log.With().Str("component", "orchestrator").Logger(),
	}
}

// Start launches the single event consumer.
func (o *Orchestrator) Start() {
	go func() {
		for {
			select {
			case <-o.quit:
				return
			case event := <-o.queue:
				o.handle(event)
			}
		}
	}()
}

func (o *Orchestrator) Stop() {
	close(o.quit)
}

// Enqueue hands a missed-call event to the pipeline. Events queue while one
// is in flight; the call monitor never waits on network work.
func (o *Orchestrator) Enqueue(event models.CallEvent) {
	o.queue <- event
}

// handle isolates one event: a panic or error in the pipeline must not take
// down the consumer or touch the next event.
func (o *Orchestrator) handle(event models.CallEvent) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Str("call_id", event.CallID()).Msg("pipeline panic recovered")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	outcome := o.Process(ctx, event)
	o.log.Info().
		Str("call_id", event.CallID()).
		Str("source", event.Source).
		Str("outcome", outcome).
		Msg("call event handled")
}

// Process runs the pipeline for one event and reports the outcome. The config
// snapshot is taken once so a concurrent reconcile cannot flip settings
// mid-call.
func (o *Orchestrator) Process(ctx context.Context, event models.CallEvent) string {
	cfg := o.sync.Snapshot()
	if !cfg.IsEnabled {
		return OUTCOME_DISABLED
	}

	// The security gate runs before everything else, test triggers included.
	verdict := Validate(event.PhoneNumber)
	if !verdict.Allowed {
		o.log.Warn().
			Str("phone", event.PhoneNumber).
			Str("risk", verdict.RiskLevel).
			Str("reason", verdict.Reason).
			Msg("destination rejected by security gate")
		return OUTCOME_BLOCKED
	}

	if cfg.FilterKnownContacts {
		if match := o.filter.IsKnown(event.PhoneNumber); match.IsKnown {
			o.log.Info().Str("contact", match.DisplayName).Msg("known contact, send suppressed")
			return OUTCOME_FILTERED
		}
	}

	callID := event.CallID()
	if !o.ledger.ShouldProcess(callID) {
		return OUTCOME_DUPLICATE
	}

	link, err := o.tokens.ResolveCurrentLink(ctx)
	if err != nil {
		// Compose falls back to a human-readable pending note; the call is
		// still answered rather than dropped.
		o.log.Warn().Err(err).Msg("link resolution failed")
	}
	text := Compose(cfg.Message, link)

	result := o.dispatcher.Send(ctx, event.PhoneNumber, text)

	// Mark processed no matter what: redelivered events must not retry.
	if err := o.ledger.MarkProcessed(callID, event.PhoneNumber, result.OK); err != nil {
		o.log.Error().Str("call_id", callID).Err(err).Msg("ledger write failed")
	}

	if result.OK {
		if err := o.sync.ReportSent(); err != nil {
			o.log.Warn().Err(err).Msg("counter update failed")
		}
		return OUTCOME_SENT
	}
	return OUTCOME_MANUAL
}
