package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/PabloGalante/solace-api/internal/domain"
)

// ProfileStore is a simple in-memory implementation of domain.ProfileStore.
// It is NOT persistent and is only suitable for development / local mode.
type ProfileStore struct {
	mu      sync.RWMutex
	users   map[domain.UserID]*domain.UserRecord
	entries map[domain.UserID]map[string]domain.JournalEntry
}

// NewProfileStore creates a new in-memory ProfileStore.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		users:   make(map[domain.UserID]*domain.UserRecord),
		entries: make(map[domain.UserID]map[string]domain.JournalEntry),
	}
}

func (s *ProfileStore) GetUserRecord(_ context.Context, userID domain.UserID) (*domain.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := *rec
	out.Persona = copyPersona(rec.Persona)
	return &out, nil
}

// SetUserRecord replaces the whole record, persona included.
func (s *ProfileStore) SetUserRecord(_ context.Context, userID domain.UserID, rec *domain.UserRecord) error {
	if rec == nil {
		return domain.NewValidationError("user_data", "is required")
	}

	stored := *rec
	stored.UserID = userID
	stored.Persona = copyPersona(rec.Persona)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[userID] = &stored
	return nil
}

// GetJournalEntries returns entries sorted by date, or nil if there are none.
func (s *ProfileStore) GetJournalEntries(_ context.Context, userID domain.UserID) ([]domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDate := s.entries[userID]
	if len(byDate) == 0 {
		return nil, nil
	}

	out := make([]domain.JournalEntry, 0, len(byDate))
	for _, e := range byDate {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *ProfileStore) UpsertJournalEntry(_ context.Context, userID domain.UserID, entry domain.JournalEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byDate, ok := s.entries[userID]
	if !ok {
		byDate = make(map[string]domain.JournalEntry)
		s.entries[userID] = byDate
	}
	byDate[entry.Date] = entry
	return nil
}

func (s *ProfileStore) GetPersona(_ context.Context, userID domain.UserID) (*domain.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return copyPersona(rec.Persona), nil
}

func (s *ProfileStore) SetPersona(_ context.Context, userID domain.UserID, persona *domain.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("set persona for %q: %w", userID, domain.ErrUserNotFound)
	}
	rec.Persona = copyPersona(persona)
	return nil
}

// copyPersona detaches the top-level persona value from the caller. Slices are
// shared; callers treat returned personas as read-only.
func copyPersona(p *domain.Persona) *domain.Persona {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}
