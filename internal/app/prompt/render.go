package prompt

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/solace-api/internal/domain"
)

// Markers used in place of absent context. They are part of the prompt text the
// model sees, so keep them readable.
const (
	NoPersonaMarker = "(no persona data recorded yet)"
	NoJournalMarker = "(no journal entries recorded yet)"
	NoProfileMarker = "empty user profile"

	unrenderableMarker = "(record could not be rendered)"
)

// RenderRecord renders any typed record as indented "key: value" text.
// Nested records become indented sub-blocks and lists are rendered as "- item"
// lines. Struct fields keep declaration order and map keys are sorted, so the
// output is stable for equal input.
func RenderRecord(v any) string {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return unrenderableMarker + "\n"
	}
	if err := enc.Close(); err != nil {
		return unrenderableMarker + "\n"
	}
	return buf.String()
}

// RenderPersona renders a persona or NoPersonaMarker when absent.
func RenderPersona(p *domain.Persona) string {
	if p == nil {
		return NoPersonaMarker
	}
	return strings.TrimRight(RenderRecord(p), "\n")
}

// RenderJournal renders entries one block per entry, in the given order.
func RenderJournal(entries []domain.JournalEntry) string {
	if len(entries) == 0 {
		return NoJournalMarker
	}
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		blocks = append(blocks, strings.TrimRight(RenderRecord(e), "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// RenderContext renders both halves of a user's context.
func RenderContext(p *domain.Persona, entries []domain.JournalEntry) (personaText, journalText string) {
	return RenderPersona(p), RenderJournal(entries)
}
