package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/PabloGalante/solace-api/internal/app/prompt"
	"github.com/PabloGalante/solace-api/internal/domain"
)

var errNoJSONObject = errors.New("reply contains no JSON object")

// summarize runs the closing exchange: it asks the model to summarize the
// session as a persona and merges the result into the stored persona.
// The caller holds sess.mu.
func (m *Manager) summarize(ctx context.Context, sess *session) error {
	current, err := m.store.GetPersona(ctx, sess.owner)
	if err != nil {
		return fmt.Errorf("load persona: %w", err)
	}

	reply, err := m.llm.Send(ctx, sess.handle, prompt.SessionCloseInstructions(current))
	m.metrics.Upstream("send", err)
	if err != nil {
		return fmt.Errorf("closing exchange: %w", err)
	}

	update, err := ParsePersonaReply(reply)
	if err != nil {
		return fmt.Errorf("parse summary: %w", err)
	}

	merged := domain.MergePersona(sess.owner, current, update)
	if err := m.store.SetPersona(ctx, sess.owner, merged); err != nil {
		return fmt.Errorf("save persona: %w", err)
	}
	return nil
}

// ParsePersonaReply extracts a persona from a model reply. Markdown code fences
// and surrounding prose are ignored, and slightly malformed JSON is repaired.
func ParsePersonaReply(reply string) (*domain.Persona, error) {
	raw := extractJSONObject(reply)
	if raw == "" {
		return nil, errNoJSONObject
	}

	var p domain.Persona
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		fixed, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, fmt.Errorf("decode persona: %w", err)
		}
		p = domain.Persona{}
		if err := json.Unmarshal([]byte(fixed), &p); err != nil {
			return nil, fmt.Errorf("decode repaired persona: %w", err)
		}
	}
	return &p, nil
}

func extractJSONObject(reply string) string {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		// Truncated reply; let the repair step close it.
		return s[start:]
	}
	return s[start : end+1]
}
