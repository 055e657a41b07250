package prompt

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/solace-api/internal/domain"
	"github.com/PabloGalante/solace-api/internal/observability"
)

// Example is one worked-example journal entry used in the correlation prompt.
type Example map[string]any

// DefaultCorrelationExamples is used whenever no example file can be loaded.
func DefaultCorrelationExamples() []Example {
	return []Example{
		{"Sleep Duration": "8 hours", "Exercise": "Intense, 2 hours", "Sleep Quality": "Good"},
		{"Sleep Duration": "5 hours", "Caffeine": "120mg", "Sleep Quality": "Poor"},
		{"Sleep Duration": "8 hours", "Exercise": "Intense, 2 hours", "Mood": "Positive"},
	}
}

// LoadCorrelationExamples reads a JSON or YAML list of example entries from path.
// Any problem falls back to DefaultCorrelationExamples.
func LoadCorrelationExamples(path string) []Example {
	if path == "" {
		return DefaultCorrelationExamples()
	}

	log := observability.WithFields("path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("correlation examples unavailable, using defaults", "error", err)
		return DefaultCorrelationExamples()
	}

	var examples []Example
	if err := yaml.Unmarshal(data, &examples); err != nil {
		log.Warn("correlation examples malformed, using defaults", "error", err)
		return DefaultCorrelationExamples()
	}
	if len(examples) == 0 {
		log.Warn("correlation examples empty, using defaults")
		return DefaultCorrelationExamples()
	}

	log.Info("correlation examples loaded", "count", len(examples))
	return examples
}

func (e Example) String() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, e[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

const correlationTemplate = `
Q. What correlations do you notice from the following journal entries?
{{examples}}
Explanation:
Sleep duration and quality were better on days with intense, long exercise. Sleep duration and quality were poor with high caffeine consumption (120mg). Mood was more positive with good sleep and intense exercise.
Answer: Better sleep has been correlated with exercise. High caffeine consumption has been correlated with poor sleep. Positive mood has been correlated with good sleep and exercise.

Q. What correlations do you notice in the following journal entries? Make sure your answer is around 300 characters.
{{entries}}
Answer:
`

// CorrelationPrompt builds a chain-of-thought prompt pairing the worked example
// with the caller's entries. An empty example list uses the defaults.
func CorrelationPrompt(examples []Example, entries []domain.JournalEntry) string {
	if len(examples) == 0 {
		examples = DefaultCorrelationExamples()
	}

	exampleLines := make([]string, 0, len(examples))
	for _, ex := range examples {
		exampleLines = append(exampleLines, ex.String())
	}

	r := strings.NewReplacer(
		"{{examples}}", strings.Join(exampleLines, "\n"),
		"{{entries}}", RenderJournal(entries),
	)
	return r.Replace(correlationTemplate)
}
