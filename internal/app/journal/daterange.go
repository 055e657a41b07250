package journal

import (
	"context"

	"github.com/PabloGalante/solace-api/internal/domain"
	"github.com/PabloGalante/solace-api/internal/observability"
)

// FilterByDateRange returns the entries dated between start and end, both
// inclusive, in their original order. Invalid bounds select nothing, and
// entries with a missing or invalid date are skipped. Neither case is an error.
func FilterByDateRange(ctx context.Context, entries []domain.JournalEntry, start, end string) []domain.JournalEntry {
	if len(entries) == 0 {
		return nil
	}

	log := observability.LoggerFromContext(ctx)

	from, err := domain.ParseDate(start)
	if err != nil {
		log.Warn("invalid start date, no entries selected", "start_date", start)
		return nil
	}
	to, err := domain.ParseDate(end)
	if err != nil {
		log.Warn("invalid end date, no entries selected", "end_date", end)
		return nil
	}

	var out []domain.JournalEntry
	for _, e := range entries {
		if e.Date == "" {
			log.Warn("skipping journal entry without date")
			continue
		}
		d, err := domain.ParseDate(e.Date)
		if err != nil {
			log.Warn("skipping journal entry with invalid date", "date", e.Date)
			continue
		}
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}
