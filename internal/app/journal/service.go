package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/solace-api/internal/app/prompt"
	"github.com/PabloGalante/solace-api/internal/domain"
	"github.com/PabloGalante/solace-api/internal/observability"
)

// Service holds the logic around user records and journal entries.
type Service struct {
	store    domain.ProfileStore
	llm      domain.ModelGateway
	examples []prompt.Example
	metrics  *observability.Metrics
}

// NewService creates a journal service. examples seeds the correlation prompt;
// nil uses the built-in defaults.
func NewService(store domain.ProfileStore, llm domain.ModelGateway, examples []prompt.Example, metrics *observability.Metrics) *Service {
	if len(examples) == 0 {
		examples = prompt.DefaultCorrelationExamples()
	}
	return &Service{
		store:    store,
		llm:      llm,
		examples: examples,
		metrics:  metrics,
	}
}

func requireUser(userID domain.UserID) error {
	if strings.TrimSpace(string(userID)) == "" {
		return domain.NewValidationError("user_id", "is required")
	}
	return nil
}

// AddUser writes the whole user record, replacing any existing one.
func (s *Service) AddUser(ctx context.Context, userID domain.UserID, rec *domain.UserRecord) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if rec == nil {
		return domain.NewValidationError("user_data", "is required")
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	log := observability.LoggerFromContext(ctx).With("user_id", userID)

	if err := s.store.SetUserRecord(ctx, userID, rec); err != nil {
		log.Error("failed to store user record", "error", err)
		return err
	}

	log.Info("user record stored")
	return nil
}

// GetUser returns the stored user record.
func (s *Service) GetUser(ctx context.Context, userID domain.UserID) (*domain.UserRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	rec, err := s.store.GetUserRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("user %q: %w", userID, domain.ErrUserNotFound)
	}
	return rec, nil
}

// AddEntries validates every entry, then upserts them in order. Nothing is
// written if any entry is invalid.
func (s *Service) AddEntries(ctx context.Context, userID domain.UserID, entries []domain.JournalEntry) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, domain.NewValidationError("journal_entries", "must not be empty")
	}
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return 0, fmt.Errorf("journal_entries[%d]: %w", i, err)
		}
	}

	log := observability.LoggerFromContext(ctx).With("user_id", userID)

	for i, e := range entries {
		if err := s.store.UpsertJournalEntry(ctx, userID, e); err != nil {
			log.Error("failed to upsert journal entry", "date", e.Date, "error", err)
			return i, err
		}
	}

	log.Info("journal entries stored", "count", len(entries))
	return len(entries), nil
}

// GetCorrelations asks the model for correlations across the user's entries
// between start and end (inclusive, YYYY-MM-DD).
func (s *Service) GetCorrelations(ctx context.Context, userID domain.UserID, start, end string) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}

	log := observability.LoggerFromContext(ctx).With(
		"user_id", userID,
		"start_date", start,
		"end_date", end,
	)

	entries, err := s.store.GetJournalEntries(ctx, userID)
	if err != nil {
		log.Error("failed to load journal entries", "error", err)
		return "", err
	}

	selected := FilterByDateRange(ctx, entries, start, end)
	log.Info("correlating journal entries", "total", len(entries), "selected", len(selected))

	reply, err := s.llm.GenerateOnce(ctx, prompt.CorrelationPrompt(s.examples, selected))
	s.metrics.Upstream("generate_once", err)
	if err != nil {
		log.Error("correlation request failed", "error", err)
		return "", fmt.Errorf("get correlations: %w", err)
	}
	return reply, nil
}
