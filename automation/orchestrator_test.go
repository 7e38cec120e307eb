package automation

import (
	"context"
	"testing"
	"time"

	"ringback/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipelineFixture struct {
	orchestrator *Orchestrator
	sync         *Synchronizer
	ledger       *Ledger
	channel      *fakeChannel
	backup       *fakeChannel
}

func newPipeline(t *testing.T, contacts ContactSource) *pipelineFixture {
	t.Helper()
	db := openTestDB(t)

	sync, err := NewSynchronizer(db, offlineBackend(), 15*time.Second, testLogger())
	require.NoError(t, err)

	ledger := NewLedger(db, 100, testLogger())
	tokens := NewTokenManager(db, offlineBackend(), StaticCredentials{}, "dev-1", testChatBase, testLogger())
	filter := NewContactFilter(contacts, "49", testLogger())

	channel := &fakeChannel{name: "gateway"}
	backup := &fakeChannel{name: "relay"}
	dispatcher := NewDispatcher(testLogger(), channel, backup)

	return &pipelineFixture{
		orchestrator: NewOrchestrator(sync, filter, ledger, tokens, dispatcher, 16, testLogger()),
		sync:         sync,
		ledger:       ledger,
		channel:      channel,
		backup:       backup,
	}
}

func liveEvent(phone string, ts int64) models.CallEvent {
	return models.CallEvent{PhoneNumber: phone, Timestamp: ts, Source: models.CALL_SOURCE_LIVE}
}

func TestPipelineDisabledIsANoOp(t *testing.T) {
	p := newPipeline(t, StaticContactSource{})

	outcome := p.orchestrator.Process(context.Background(), liveEvent("+4917112345678", 1))

	assert.Equal(t, OUTCOME_DISABLED, outcome)
	assert.Equal(t, 0, p.channel.calls)
	assert.Equal(t, 0, p.ledger.Count(), "no side effects while disabled")
}

func TestPipelineSecurityGateBeforeEverything(t *testing.T) {
	// contact filtering on, premium number even saved as a contact: the
	// security gate still wins
	p := newPipeline(t, StaticContactSource{Permission: true, Contacts: []Contact{
		{DisplayName: "Scammy", PhoneNumbers: []string{"0900123456"}},
	}})
	require.NoError(t, p.sync.SetEnabled(true))
	require.NoError(t, p.sync.SetFilterKnownContacts(true))

	outcome := p.orchestrator.Process(context.Background(), liveEvent("0900123456", 1))

	assert.Equal(t, OUTCOME_BLOCKED, outcome)
	assert.Equal(t, 0, p.channel.calls, "send must never be invoked for a premium number")
	assert.Equal(t, 0, p.backup.calls)
	assert.Equal(t, int64(0), p.sync.Snapshot().SentCount)
}

func TestPipelineSecurityGateAppliesToTestTriggers(t *testing.T) {
	p := newPipeline(t, StaticContactSource{})
	require.NoError(t, p.sync.SetEnabled(true))

	event := models.CallEvent{PhoneNumber: "+19001234567", Timestamp: 1, Source: models.CALL_SOURCE_TEST}
	outcome := p.orchestrator.Process(context.Background(), event)

	assert.Equal(t, OUTCOME_BLOCKED, outcome)
	assert.Equal(t, 0, p.channel.calls)
}

func TestPipelineKnownContactSuppressed(t *testing.T) {
	p := newPipeline(t, StaticContactSource{Permission: true, Contacts: []Contact{
		{DisplayName: "Maria", PhoneNumbers: []string{"0171 1234567"}},
	}})
	require.NoError(t, p.sync.SetEnabled(true))
	require.NoError(t, p.sync.SetFilterKnownContacts(true))

	// same number, international rendering
	outcome := p.orchestrator.Process(context.Background(), liveEvent("+491711234567", 1))

	assert.Equal(t, OUTCOME_FILTERED, outcome)
	assert.Equal(t, 0, p.channel.calls)
	assert.Equal(t, int64(0), p.sync.Snapshot().SentCount)
	assert.Equal(t, 0, p.ledger.Count(), "filtering stops before the dedup check")
}

func TestPipelineKnownContactSentWhenFilterOff(t *testing.T) {
	p := newPipeline(t, StaticContactSource{Permission: true, Contacts: []Contact{
		{DisplayName: "Maria", PhoneNumbers: []string{"+491711234567"}},
	}})
	require.NoError(t, p.sync.SetEnabled(true))

	outcome := p.orchestrator.Process(context.Background(), liveEvent("+491711234567", 1))

	assert.Equal(t, OUTCOME_SENT, outcome)
	assert.Equal(t, 1, p.channel.calls)
}

func TestPipelineMissingPermissionDoesNotBlockSend(t *testing.T) {
	p := newPipeline(t, StaticContactSource{Permission: false, Contacts: []Contact{
		{DisplayName: "Maria", PhoneNumbers: []string{"+491711234567"}},
	}})
	require.NoError(t, p.sync.SetEnabled(true))
	require.NoError(t, p.sync.SetFilterKnownContacts(true))

	outcome := p.orchestrator.Process(context.Background(), liveEvent("+491711234567", 1))

	assert.Equal(t, OUTCOME_SENT, outcome, "no permission means treat as unknown, not suppress")
}

func TestPipelineRedeliveredEventSendsOnce(t *testing.T) {
	p := newPipeline(t, StaticContactSource{})
	require.NoError(t, p.sync.SetEnabled(true))

	event := liveEvent("+4917112345678", 1700000000000)

	first := p.orchestrator.Process(context.Background(), event)
	second := p.orchestrator.Process(context.Background(), event)

	assert.Equal(t, OUTCOME_SENT, first)
	assert.Equal(t, OUTCOME_DUPLICATE, second)
	assert.Equal(t, 1, p.channel.calls, "exactly one dispatch across redeliveries")
	assert.Equal(t, int64(1), p.sync.Snapshot().SentCount)
}

func TestPipelineExhaustedChannelsStillMarksProcessed(t *testing.T) {
	p := newPipeline(t, StaticContactSource{})
	require.NoError(t, p.sync.SetEnabled(true))
	p.channel.err = assert.AnError
	p.backup.err = assert.AnError

	event := liveEvent("+4917112345678", 1)

	first := p.orchestrator.Process(context.Background(), event)
	second := p.orchestrator.Process(context.Background(), event)

	assert.Equal(t, OUTCOME_MANUAL, first)
	assert.Equal(t, OUTCOME_DUPLICATE, second, "a handled failure must not be retried forever")
	assert.Equal(t, int64(0), p.sync.Snapshot().SentCount, "failed sends do not bump counters")
}

func TestPipelineMessageContainsChatLink(t *testing.T) {
	p := newPipeline(t, StaticContactSource{})
	require.NoError(t, p.sync.SetEnabled(true))

	capture := &capturingChannel{}
	p.orchestrator.dispatcher = NewDispatcher(testLogger(), capture)

	outcome := p.orchestrator.Process(context.Background(), liveEvent("+4917112345678", 1))

	assert.Equal(t, OUTCOME_SENT, outcome)
	assert.Contains(t, capture.text, testChatBase+"/chat/")
	assert.NotContains(t, capture.text, models.LinkPlaceholder)
}

type capturingChannel struct {
	text string
}

func (c *capturingChannel) Name() string { return "capture" }

func (c *capturingChannel) Send(ctx context.Context, phoneNumber, text string) error {
	c.text = text
	return nil
}
