package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/solace-api/internal/domain"
)

const (
	usersCollection   = "users"
	entriesCollection = "journalEntries"
	personaField      = "user_persona"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for projectID. credentialsFile is an
// optional service account key; when empty, application default credentials
// are used.
func NewStore(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) userDoc(id domain.UserID) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(string(id))
}

func (s *Store) entriesCol(id domain.UserID) *firestore.CollectionRef {
	return s.userDoc(id).Collection(entriesCollection)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

// userDoc mirrors the stored user document. The persona is decoded separately
// so that older layouts can be migrated.
type userDoc struct {
	Username  string `firestore:"username,omitempty"`
	FirstName string `firestore:"firstName,omitempty"`
	LastName  string `firestore:"lastName,omitempty"`
	DOB       string `firestore:"dob,omitempty"`
}

// ─────────────────────────────────────────
// ProfileStore implementation
// ─────────────────────────────────────────

func (s *Store) GetUserRecord(ctx context.Context, userID domain.UserID) (*domain.UserRecord, error) {
	snap, err := s.userDoc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, domain.StoreError("firestore GetUserRecord", err)
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, domain.StoreError("firestore GetUserRecord decode", err)
	}

	persona, err := personaFromSnapshot(snap)
	if err != nil {
		return nil, domain.StoreError("firestore GetUserRecord persona", err)
	}

	return &domain.UserRecord{
		UserID:    userID,
		Username:  doc.Username,
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
		DOB:       doc.DOB,
		Persona:   persona,
	}, nil
}

// SetUserRecord overwrites the user document. The journal sub-collection is
// not touched.
func (s *Store) SetUserRecord(ctx context.Context, userID domain.UserID, rec *domain.UserRecord) error {
	if rec == nil {
		return domain.NewValidationError("user_data", "is required")
	}

	data := map[string]interface{}{
		"user_id":   string(userID),
		"username":  rec.Username,
		"firstName": rec.FirstName,
		"lastName":  rec.LastName,
		"dob":       rec.DOB,
	}
	if rec.Persona != nil {
		p := *rec.Persona
		p.SchemaVersion = domain.PersonaSchemaVersion
		data[personaField] = p
	}

	if _, err := s.userDoc(userID).Set(ctx, data); err != nil {
		return domain.StoreError("firestore SetUserRecord", err)
	}
	return nil
}

func (s *Store) GetJournalEntries(ctx context.Context, userID domain.UserID) ([]domain.JournalEntry, error) {
	iter := s.entriesCol(userID).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []domain.JournalEntry
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, domain.StoreError("firestore GetJournalEntries", err)
		}

		var entry domain.JournalEntry
		if err := snap.DataTo(&entry); err != nil {
			return nil, domain.StoreError("firestore GetJournalEntries decode", err)
		}
		if entry.Date == "" {
			entry.Date = snap.Ref.ID
		}
		out = append(out, entry)
	}
	return out, nil
}

// UpsertJournalEntry writes the entry under its date, replacing any previous
// entry for that day.
func (s *Store) UpsertJournalEntry(ctx context.Context, userID domain.UserID, entry domain.JournalEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	if _, err := s.entriesCol(userID).Doc(entry.Date).Set(ctx, entry); err != nil {
		return domain.StoreError("firestore UpsertJournalEntry", err)
	}
	return nil
}

func (s *Store) GetPersona(ctx context.Context, userID domain.UserID) (*domain.Persona, error) {
	snap, err := s.userDoc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, domain.StoreError("firestore GetPersona", err)
	}

	persona, err := personaFromSnapshot(snap)
	if err != nil {
		return nil, domain.StoreError("firestore GetPersona decode", err)
	}
	return persona, nil
}

// SetPersona updates the persona field of an existing user document. Update
// fails with NotFound when the document is missing.
func (s *Store) SetPersona(ctx context.Context, userID domain.UserID, persona *domain.Persona) error {
	var value interface{}
	if persona != nil {
		p := *persona
		p.SchemaVersion = domain.PersonaSchemaVersion
		value = p
	}

	_, err := s.userDoc(userID).Update(ctx, []firestore.Update{
		{Path: personaField, Value: value},
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("set persona for %q: %w", userID, domain.ErrUserNotFound)
		}
		return domain.StoreError("firestore SetPersona", err)
	}
	return nil
}

func personaFromSnapshot(snap *firestore.DocumentSnapshot) (*domain.Persona, error) {
	raw, ok := snap.Data()[personaField]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s has unexpected type %T", personaField, raw)
	}
	return domain.PersonaFromMap(m)
}
