package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/solace-api/internal/app/prompt"
	"github.com/PabloGalante/solace-api/internal/domain"
	"github.com/PabloGalante/solace-api/internal/observability"
)

// Options tunes a Manager.
type Options struct {
	// CloseSummary enables the closing exchange in EndChat: the model summarizes
	// the session and the result is merged into the stored persona.
	CloseSummary bool
	Metrics      *observability.Metrics
}

// session is one entry of the session table. mu serializes every exchange on
// the conversation, so two sends on the same session never interleave.
type session struct {
	mu        sync.Mutex
	id        domain.SessionID
	owner     domain.UserID
	handle    domain.ConversationHandle
	createdAt time.Time
	ended     bool
}

// Manager owns the in-memory session table and mediates every exchange with
// the model through the user's context. Sessions are not persisted and never
// expire.
type Manager struct {
	store   domain.ProfileStore
	llm     domain.ModelGateway
	opts    Options
	metrics *observability.Metrics
	now     func() time.Time
	newID   func() domain.SessionID

	mu       sync.RWMutex
	sessions map[domain.SessionID]*session
}

func NewManager(store domain.ProfileStore, llm domain.ModelGateway, opts Options) *Manager {
	return &Manager{
		store:    store,
		llm:      llm,
		opts:     opts,
		metrics:  opts.Metrics,
		now:      time.Now,
		newID:    func() domain.SessionID { return domain.SessionID(uuid.NewString()) },
		sessions: make(map[domain.SessionID]*session),
	}
}

// StartChat primes a new conversation with the user's persona and journal and
// registers it. The session exists as soon as the conversation is open: if the
// priming exchange fails, the session stays registered and its id is returned
// together with the error.
func (m *Manager) StartChat(ctx context.Context, userID domain.UserID) (domain.SessionID, error) {
	if strings.TrimSpace(string(userID)) == "" {
		return "", domain.NewValidationError("user_id", "is required")
	}

	log := observability.LoggerFromContext(ctx).With("user_id", userID)
	log.Info("starting new session")

	persona, entries, err := m.loadContext(ctx, userID)
	if err != nil {
		log.Error("failed to load user context", "error", err)
		return "", err
	}
	priming := prompt.SessionOpenInstructions(persona, entries)

	handle, err := m.llm.OpenConversation(ctx)
	m.metrics.Upstream("open_conversation", err)
	if err != nil {
		log.Error("failed to open conversation", "error", err)
		return "", fmt.Errorf("start chat: %w", err)
	}

	sess := &session{
		owner:     userID,
		handle:    handle,
		createdAt: m.now(),
	}
	// Held until priming is done so no message can overtake it.
	sess.mu.Lock()
	defer sess.mu.Unlock()

	active := m.register(sess)
	m.metrics.SetSessionsActive(active)
	m.metrics.SessionEvent(observability.EventStarted)

	log = log.With("session_id", sess.id)

	start := time.Now()
	_, err = m.llm.Send(ctx, handle, priming)
	m.metrics.Upstream("send", err)
	if err != nil {
		m.metrics.SessionEvent(observability.EventPrimingFailed)
		log.Error("priming failed, session left active", "error", err)
		return sess.id, fmt.Errorf("prime session %s: %w", sess.id, err)
	}

	log.Info("session started",
		"journal_entries", len(entries),
		"has_persona", persona != nil,
		"elapsed_ms", time.Since(start).Milliseconds())
	return sess.id, nil
}

// loadContext fetches persona and journal entries concurrently. Absence of
// either is not an error.
func (m *Manager) loadContext(ctx context.Context, userID domain.UserID) (*domain.Persona, []domain.JournalEntry, error) {
	var (
		persona *domain.Persona
		entries []domain.JournalEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := m.store.GetPersona(gctx, userID)
		if err != nil {
			return fmt.Errorf("load persona: %w", err)
		}
		persona = p
		return nil
	})
	g.Go(func() error {
		e, err := m.store.GetJournalEntries(gctx, userID)
		if err != nil {
			return fmt.Errorf("load journal entries: %w", err)
		}
		entries = e
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return persona, entries, nil
}

// register stores sess under a fresh id and returns the table size.
func (m *Manager) register(sess *session) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	for {
		if _, taken := m.sessions[id]; !taken {
			break
		}
		id = m.newID()
	}
	sess.id = id
	m.sessions[id] = sess
	return len(m.sessions)
}

// lookup returns the session for id. When userID is not empty it must match
// the owner; a mismatch is reported as not found.
func (m *Manager) lookup(id domain.SessionID, userID domain.UserID) (*session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || (userID != "" && sess.owner != userID) {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
	}
	return sess, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	// UserID is optional. When set, the session must belong to this user.
	UserID domain.UserID
	Text   string
}

// SendMessage relays text into the session's conversation and returns the
// reply verbatim.
func (m *Manager) SendMessage(ctx context.Context, in SendMessageInput) (string, error) {
	sess, err := m.lookup(in.SessionID, in.UserID)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// EndChat may have won the race for this session while we waited.
	if sess.ended {
		return "", fmt.Errorf("session %q: %w", in.SessionID, domain.ErrSessionNotFound)
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", sess.id,
		"user_id", sess.owner,
	)

	start := time.Now()
	reply, err := m.llm.Send(ctx, sess.handle, in.Text)
	m.metrics.Upstream("send", err)
	if err != nil {
		log.Error("send message failed", "error", err)
		return "", fmt.Errorf("send message: %w", err)
	}

	log.Info("send message completed", "elapsed_ms", time.Since(start).Milliseconds())
	return reply, nil
}

type EndChatInput struct {
	SessionID domain.SessionID
	// UserID is optional. When set, the session must belong to this user.
	UserID domain.UserID
}

// EndChat removes the session and releases its conversation. Once the session
// is found, ending it always succeeds: failures in the closing summary or in
// releasing the conversation are logged, not returned.
func (m *Manager) EndChat(ctx context.Context, in EndChatInput) error {
	sess, err := m.lookup(in.SessionID, in.UserID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.sessions[in.SessionID] != sess {
		m.mu.Unlock()
		return fmt.Errorf("session %q: %w", in.SessionID, domain.ErrSessionNotFound)
	}
	delete(m.sessions, in.SessionID)
	active := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetSessionsActive(active)

	// Wait for any in-flight exchange on this session.
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.ended = true

	log := observability.LoggerFromContext(ctx).With(
		"session_id", sess.id,
		"user_id", sess.owner,
	)

	if m.opts.CloseSummary {
		if err := m.summarize(ctx, sess); err != nil {
			m.metrics.SessionEvent(observability.EventSummaryFailed)
			log.Warn("closing summary skipped", "error", err)
		} else {
			m.metrics.SessionEvent(observability.EventSummarized)
		}
	}

	if err := m.llm.CloseConversation(ctx, sess.handle); err != nil {
		log.Warn("failed to release conversation", "error", err)
	}

	m.metrics.SessionEvent(observability.EventEnded)
	log.Info("session ended", "duration_ms", m.now().Sub(sess.createdAt).Milliseconds())
	return nil
}

// GetSingleResponse runs one stateless turn. It never touches the session table.
func (m *Manager) GetSingleResponse(ctx context.Context, text string) (string, error) {
	reply, err := m.llm.GenerateOnce(ctx, text)
	m.metrics.Upstream("generate_once", err)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("single response failed", "error", err)
		return "", fmt.Errorf("single response: %w", err)
	}
	return reply, nil
}

// ActiveSessions returns the number of sessions in the table.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
