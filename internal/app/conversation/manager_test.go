package conversation_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/PabloGalante/solace-api/internal/adapters/llm"
	"github.com/PabloGalante/solace-api/internal/adapters/storage/memory"
	"github.com/PabloGalante/solace-api/internal/app/conversation"
	"github.com/PabloGalante/solace-api/internal/app/prompt"
	"github.com/PabloGalante/solace-api/internal/domain"
	"github.com/PabloGalante/solace-api/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGateway records every exchange and lets tests inject failures.
type fakeGateway struct {
	mu       sync.Mutex
	open     map[domain.ConversationHandle]bool
	sent     []string
	seq      int
	failOpen error
	// failSend is consulted on every Send with the 0-based call number.
	failSend func(call int, text string) error
	reply    func(text string) string
	delay    time.Duration
	onSend   func(text string)

	inFlight map[domain.ConversationHandle]int
	overlap  atomic.Bool
	singles  atomic.Int32
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		open:     make(map[domain.ConversationHandle]bool),
		inFlight: make(map[domain.ConversationHandle]int),
	}
}

func (f *fakeGateway) OpenConversation(context.Context) (domain.ConversationHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOpen != nil {
		return "", domain.UpstreamError("fake open", f.failOpen)
	}
	f.seq++
	h := domain.ConversationHandle(fmt.Sprintf("h-%d", f.seq))
	f.open[h] = true
	return h, nil
}

func (f *fakeGateway) Send(_ context.Context, h domain.ConversationHandle, text string) (string, error) {
	f.mu.Lock()
	if !f.open[h] {
		f.mu.Unlock()
		return "", domain.ErrSessionNotFound
	}
	call := len(f.sent)
	f.sent = append(f.sent, text)
	if f.failSend != nil {
		if err := f.failSend(call, text); err != nil {
			f.mu.Unlock()
			return "", domain.UpstreamError("fake send", err)
		}
	}
	f.inFlight[h]++
	if f.inFlight[h] > 1 {
		f.overlap.Store(true)
	}
	onSend := f.onSend
	f.mu.Unlock()

	if onSend != nil {
		onSend(text)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight[h]--
	f.mu.Unlock()

	if f.reply != nil {
		return f.reply(text), nil
	}
	return "echo: " + text, nil
}

func (f *fakeGateway) GenerateOnce(_ context.Context, text string) (string, error) {
	f.singles.Add(1)
	return "single: " + text, nil
}

func (f *fakeGateway) CloseConversation(_ context.Context, h domain.ConversationHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open[h] {
		return domain.ErrSessionNotFound
	}
	delete(f.open, h)
	return nil
}

func (f *fakeGateway) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeGateway) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.open)
}

// failingStore fails journal reads.
type failingStore struct {
	*memory.ProfileStore
}

func (failingStore) GetJournalEntries(context.Context, domain.UserID) ([]domain.JournalEntry, error) {
	return nil, domain.StoreError("fake entries", errors.New("unavailable"))
}

func TestStartSessionAndSendMessage(t *testing.T) {
	ctx := context.Background()

	svc := conversation.NewManager(memory.NewProfileStore(), llm.NewMockLLM(), conversation.Options{})

	id, err := svc.StartChat(ctx, "test-user")
	if err != nil {
		t.Fatalf("StartChat failed: %v", err)
	}
	if id == "" {
		t.Fatalf("expected session id, got empty")
	}

	reply, err := svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: id,
		UserID:    "test-user",
		Text:      "Hola",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if reply == "" {
		t.Fatalf("expected non-empty agent reply")
	}
}

func TestStartChatIssuesUniqueIDs(t *testing.T) {
	ctx := context.Background()
	mgr := conversation.NewManager(memory.NewProfileStore(), newFakeGateway(), conversation.Options{})

	seen := make(map[domain.SessionID]bool)
	for i := 0; i < 50; i++ {
		id, err := mgr.StartChat(ctx, "u1")
		require.NoError(t, err)
		require.False(t, seen[id], "session id %s issued twice", id)
		seen[id] = true
	}
	assert.Equal(t, 50, mgr.ActiveSessions())
}

func TestStartChatRequiresUser(t *testing.T) {
	mgr := conversation.NewManager(memory.NewProfileStore(), newFakeGateway(), conversation.Options{})

	_, err := mgr.StartChat(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, mgr.ActiveSessions())
}

func TestStartChatPrimesWithEmptyContextMarkers(t *testing.T) {
	gw := newFakeGateway()
	mgr := conversation.NewManager(memory.NewProfileStore(), gw, conversation.Options{})

	_, err := mgr.StartChat(context.Background(), "new-user")
	require.NoError(t, err)

	sent := gw.sentTexts()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], prompt.NoPersonaMarker)
	assert.Contains(t, sent[0], prompt.NoJournalMarker)
}

func TestStartChatPrimesWithStoredContext(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	require.NoError(t, store.SetUserRecord(ctx, "u1", &domain.UserRecord{
		Persona: &domain.Persona{UserID: "u1", KeyThemes: []string{"burnout"}},
	}))
	require.NoError(t, store.UpsertJournalEntry(ctx, "u1", domain.JournalEntry{Date: "2024-03-01", DailyJournal: "tired all day"}))

	gw := newFakeGateway()
	mgr := conversation.NewManager(store, gw, conversation.Options{})

	_, err := mgr.StartChat(ctx, "u1")
	require.NoError(t, err)

	sent := gw.sentTexts()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "burnout")
	assert.Contains(t, sent[0], "tired all day")
	assert.NotContains(t, sent[0], prompt.NoJournalMarker)
}

func TestStartChatStoreFailure(t *testing.T) {
	gw := newFakeGateway()
	mgr := conversation.NewManager(failingStore{memory.NewProfileStore()}, gw, conversation.Options{})

	_, err := mgr.StartChat(context.Background(), "u1")
	require.ErrorIs(t, err, domain.ErrStore)
	assert.Zero(t, mgr.ActiveSessions())
	assert.Zero(t, gw.openCount())
}

func TestStartChatOpenFailureRegistersNothing(t *testing.T) {
	gw := newFakeGateway()
	gw.failOpen = errors.New("quota exceeded")
	mgr := conversation.NewManager(memory.NewProfileStore(), gw, conversation.Options{})

	id, err := mgr.StartChat(context.Background(), "u1")
	require.ErrorIs(t, err, domain.ErrUpstream)
	assert.Empty(t, id)
	assert.Zero(t, mgr.ActiveSessions())
}

func TestStartChatPrimingFailureLeavesSessionActive(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.failSend = func(call int, _ string) error {
		if call == 0 {
			return errors.New("rate limited")
		}
		return nil
	}
	mgr := conversation.NewManager(memory.NewProfileStore(), gw, conversation.Options{})

	id, err := mgr.StartChat(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrUpstream)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, mgr.ActiveSessions())

	reply, err := mgr.SendMessage(ctx, conversation.SendMessageInput{SessionID: id, Text: "still there?"})
	require.NoError(t, err)
	assert.Equal(t, "echo: still there?", reply)
}

func TestSendMessageReturnsReplyVerbatim(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.reply = func(string) string { return "  **Reply** with\n markdown  " }
	mgr := conversation.NewManager(memory.NewProfileStore(), gw, conversation.Options{})

	id, err := mgr.StartChat(ctx, "u1")
	require.NoError(t, err)

	reply, err := mgr.SendMessage(ctx, conversation.SendMessageInput{SessionID: id, Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "  **Reply** with\n markdown  ", reply)
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	ctx := context.Background()
	mgr := conversation.NewManager(memory.NewProfileStore(), newFakeGateway(), conversation.Options{})

	_, err := mgr.SendMessage(ctx, conversation.SendMessageInput{SessionID: "nope", Text: "hi"})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = mgr.EndChat(ctx, conversation.EndChatInput{SessionID: "nope"})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEndedSessionIsNotResurrected(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	mgr := conversation.NewManager(memory.NewProfileStore(), gw, conversation.Options{})

	id, err := mgr.StartChat(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, mgr.EndChat(ctx, conversation.EndChatInput{SessionID: id, UserID: "u1"}))

	assert.Zero(t, mgr.ActiveSessions())
	assert.Zero(t, gw.openCount())

	_, err = mgr.SendMessage(ctx, conversation.SendMessageInput{SessionID: id, Text: "hello?"})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = mgr.EndChat(ctx, conversation.EndChatInput{SessionID: id})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionOwnershipIsEnforced(t *testing.T) {
	ctx := context.Background()
	mgr := conversation.NewManager(memory.NewProfileStore(), newFakeGateway(), conversation.Options{})

	id, err := mgr.StartChat(ctx, "alice")
	require.NoError(t, err)

	_, err = mgr.SendMessage(ctx, conversation.SendMessageInput{SessionID: id, UserID: "mallory", Text: "hi"})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = mgr.EndChat(ctx, conversation.EndChatInput{SessionID: id, UserID: "mallory"})
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, 1, mgr.ActiveSessions())

	_, err = mgr.SendMessage(ctx, conversation.SendMessageInput{SessionID: id, UserID: "alice", Text: "hi"})
	require.NoError(t, err)
}

func TestGetSingleResponseIgnoresSessionTable(t *testing.T) {
	gw := newFakeGateway()
	mgr := conversation.NewManager(memory.NewProfileStore(), gw, conversation.Options{})

	reply, err := mgr.GetSingleResponse(context.Background(), "what is sleep hygiene?")
	require.NoError(t, err)
	assert.Equal(t, "single: what is sleep hygiene?", reply)
	assert.Zero(t, mgr.ActiveSessions())
	assert.Zero(t, gw.openCount())
	assert.Equal(t, int32(1), gw.singles.Load())
}

func TestConcurrentSendsOnOneSessionDoNotInterleave(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.delay = 2 * time.Millisecond
	mgr := conversation.NewManager(memory.NewProfileStore(), gw, conversation.Options{})

	id, err := mgr.StartChat(ctx, "u1")
	require.NoError(t, err)
	other, err := mgr.StartChat(ctx, "u2")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := id
			if i%2 == 1 {
				target = other
			}
			_, err := mgr.SendMessage(ctx, conversation.SendMessageInput{SessionID: target, Text: fmt.Sprintf("msg %d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.False(t, gw.overlap.Load(), "exchanges on one session overlapped")
	assert.Len(t, gw.sentTexts(), 22)
}

func TestEndChatWaitsForInFlightSend(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.delay = 20 * time.Millisecond
	mgr := conversation.NewManager(memory.NewProfileStore(), gw, conversation.Options{})

	id, err := mgr.StartChat(ctx, "u1")
	require.NoError(t, err)

	started := make(chan struct{})
	var once sync.Once
	gw.mu.Lock()
	gw.onSend = func(text string) {
		if text == "slow" {
			once.Do(func() { close(started) })
		}
	}
	gw.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := mgr.SendMessage(ctx, conversation.SendMessageInput{SessionID: id, Text: "slow"})
		done <- err
	}()
	<-started

	require.NoError(t, mgr.EndChat(ctx, conversation.EndChatInput{SessionID: id}))
	require.NoError(t, <-done)
	assert.Zero(t, gw.openCount())
}

func TestEndChatMergesClosingSummary(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	require.NoError(t, store.SetUserRecord(ctx, "u1", &domain.UserRecord{
		Persona: &domain.Persona{UserID: "u1", KeyThemes: []string{"sleep"}},
	}))

	gw := newFakeGateway()
	gw.reply = func(text string) string {
		if strings.Contains(text, "The session has concluded") {
			return "Here is the summary:\n```json\n{\"userId\": \"u1\", \"keyThemes\": [\"sleep\", \"work stress\"], \"observedMood\": {\"overallTrend\": \"anxious\"},}\n```"
		}
		return "ok"
	}

	reg := prometheus.NewRegistry()
	mgr := conversation.NewManager(store, gw, conversation.Options{
		CloseSummary: true,
		Metrics:      observability.NewMetrics(reg),
	})

	id, err := mgr.StartChat(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, mgr.EndChat(ctx, conversation.EndChatInput{SessionID: id, UserID: "u1"}))

	p, err := store.GetPersona(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, []string{"sleep", "work stress"}, p.KeyThemes)
	assert.Equal(t, "anxious", p.ObservedMood.OverallTrend)
	assert.Equal(t, domain.PersonaSchemaVersion, p.SchemaVersion)
}

func TestEndChatSummaryParseFailureStillEnds(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	require.NoError(t, store.SetUserRecord(ctx, "u1", &domain.UserRecord{
		Persona: &domain.Persona{UserID: "u1", KeyThemes: []string{"sleep"}},
	}))

	gw := newFakeGateway()
	gw.reply = func(string) string { return "Thanks for the session, take care!" }
	mgr := conversation.NewManager(store, gw, conversation.Options{CloseSummary: true})

	id, err := mgr.StartChat(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, mgr.EndChat(ctx, conversation.EndChatInput{SessionID: id}))

	assert.Zero(t, mgr.ActiveSessions())
	p, err := store.GetPersona(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sleep"}, p.KeyThemes)
}

func TestEndChatSummaryUpstreamFailureStillEnds(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.failSend = func(_ int, text string) error {
		if strings.Contains(text, "The session has concluded") {
			return errors.New("timeout")
		}
		return nil
	}
	// No user record: saving the persona would fail as well.
	mgr := conversation.NewManager(memory.NewProfileStore(), gw, conversation.Options{CloseSummary: true})

	id, err := mgr.StartChat(ctx, "ghost")
	require.NoError(t, err)
	require.NoError(t, mgr.EndChat(ctx, conversation.EndChatInput{SessionID: id}))
	assert.Zero(t, gw.openCount())
}

func TestEndChatWithoutSummarySendsNothing(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	mgr := conversation.NewManager(memory.NewProfileStore(), gw, conversation.Options{})

	id, err := mgr.StartChat(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, mgr.EndChat(ctx, conversation.EndChatInput{SessionID: id}))
	assert.Len(t, gw.sentTexts(), 1)
}
