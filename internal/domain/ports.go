package domain

import "context"

// ModelGateway defines how the core application talks to the upstream LLM.
// Implementations own the mapping from handle to provider conversation.
type ModelGateway interface {
	OpenConversation(ctx context.Context) (ConversationHandle, error)
	// Send fails with ErrSessionNotFound for unknown handles and with an
	// UpstreamError when the provider fails. Nothing is retried.
	Send(ctx context.Context, handle ConversationHandle, text string) (string, error)
	GenerateOnce(ctx context.Context, text string) (string, error)
	CloseConversation(ctx context.Context, handle ConversationHandle) error
}

// ProfileStore defines persistence of user records, journal entries and personas.
// Absent data is reported as a nil result with a nil error.
type ProfileStore interface {
	GetUserRecord(ctx context.Context, userID UserID) (*UserRecord, error)
	// SetUserRecord overwrites the whole user document.
	SetUserRecord(ctx context.Context, userID UserID, rec *UserRecord) error

	// GetJournalEntries returns entries ordered by date, or nil when the user has none.
	GetJournalEntries(ctx context.Context, userID UserID) ([]JournalEntry, error)
	// UpsertJournalEntry replaces any entry with the same date.
	UpsertJournalEntry(ctx context.Context, userID UserID, entry JournalEntry) error

	GetPersona(ctx context.Context, userID UserID) (*Persona, error)
	// SetPersona fails with ErrUserNotFound if the user document does not exist.
	SetPersona(ctx context.Context, userID UserID, persona *Persona) error
}
