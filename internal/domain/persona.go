package domain

import (
	"encoding/json"
	"fmt"
)

// PersonaSchemaVersion is the version written by this service. Version 1 documents
// have no schemaVersion field and may be wrapped under "userProfile".
const PersonaSchemaVersion = 2

type Goal struct {
	Goal     string `json:"goal" yaml:"goal" firestore:"goal"`
	Progress string `json:"progress,omitempty" yaml:"progress,omitempty" firestore:"progress,omitempty"`
}

type SuggestedAssignment struct {
	Assignment string `json:"assignment" yaml:"assignment" firestore:"assignment"`
	Completed  bool   `json:"completed" yaml:"completed" firestore:"completed"`
}

type ObservedMood struct {
	OverallTrend       string `json:"overallTrend,omitempty" yaml:"overallTrend,omitempty" firestore:"overallTrend,omitempty"`
	RecentFluctuations string `json:"recentFluctuations,omitempty" yaml:"recentFluctuations,omitempty" firestore:"recentFluctuations,omitempty"`
}

type ObservedBehavior struct {
	Avoidance     string `json:"avoidance,omitempty" yaml:"avoidance,omitempty" firestore:"avoidance,omitempty"`
	Concentration string `json:"concentration,omitempty" yaml:"concentration,omitempty" firestore:"concentration,omitempty"`
}

type ChatTurn struct {
	Role Role   `json:"role" yaml:"role" firestore:"role"`
	Text string `json:"text" yaml:"text" firestore:"text"`
}

type AssessmentResult struct {
	Assessment     string  `json:"assessment" yaml:"assessment" firestore:"assessment"`
	Score          float64 `json:"score" yaml:"score" firestore:"score"`
	Interpretation string  `json:"interpretation,omitempty" yaml:"interpretation,omitempty" firestore:"interpretation,omitempty"`
}

// Persona is the derived well-being profile of a user, stored embedded in the
// user document.
type Persona struct {
	SchemaVersion int    `json:"schemaVersion" yaml:"-" firestore:"schemaVersion"`
	UserID        UserID `json:"userId" yaml:"userId" firestore:"userId"`

	PresentingSymptoms   []string              `json:"presentingSymptoms,omitempty" yaml:"presentingSymptoms,omitempty" firestore:"presentingSymptoms,omitempty"`
	ObservedPatterns     []string              `json:"observedPatterns,omitempty" yaml:"observedPatterns,omitempty" firestore:"observedPatterns,omitempty"`
	ObservedMood         ObservedMood          `json:"observedMood" yaml:"observedMood,omitempty" firestore:"observedMood"`
	ObservedBehavior     ObservedBehavior      `json:"observedBehavior" yaml:"observedBehavior,omitempty" firestore:"observedBehavior"`
	CurrentGoals         []Goal                `json:"currentGoals,omitempty" yaml:"currentGoals,omitempty" firestore:"currentGoals,omitempty"`
	KeyThemes            []string              `json:"keyThemes,omitempty" yaml:"keyThemes,omitempty" firestore:"keyThemes,omitempty"`
	SignificantEvents    []string              `json:"significantEvents,omitempty" yaml:"significantEvents,omitempty" firestore:"significantEvents,omitempty"`
	SuggestedAssignments []SuggestedAssignment `json:"suggestedAssignments,omitempty" yaml:"suggestedAssignments,omitempty" firestore:"suggestedAssignments,omitempty"`

	ChatLog               []ChatTurn         `json:"chatLog,omitempty" yaml:"chatLog,omitempty" firestore:"chatLog,omitempty"`
	SelfAssessmentResults []AssessmentResult `json:"selfAssessmentResults,omitempty" yaml:"selfAssessmentResults,omitempty" firestore:"selfAssessmentResults,omitempty"`
}

// PersonaFromMap decodes a stored persona document, upgrading version 1 layouts
// (flat or wrapped under "userProfile") to the current schema.
func PersonaFromMap(raw map[string]any) (*Persona, error) {
	if raw == nil {
		return nil, nil
	}
	if _, versioned := raw["schemaVersion"]; !versioned {
		if inner, ok := raw["userProfile"].(map[string]any); ok {
			raw = inner
		}
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode persona document: %w", err)
	}
	var p Persona
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode persona document: %w", err)
	}
	if p.SchemaVersion < PersonaSchemaVersion {
		p.SchemaVersion = PersonaSchemaVersion
	}
	return &p, nil
}

// MergePersona folds update into base and returns a new persona owned by userID.
// Lists are unioned in order, goals and assignments are keyed by their text with
// update winning, non-empty mood and behavior fields replace, and the chat log and
// assessment results are appended.
func MergePersona(userID UserID, base, update *Persona) *Persona {
	out := &Persona{}
	if base != nil {
		*out = *base
		out.PresentingSymptoms = append([]string(nil), base.PresentingSymptoms...)
		out.ObservedPatterns = append([]string(nil), base.ObservedPatterns...)
		out.CurrentGoals = append([]Goal(nil), base.CurrentGoals...)
		out.KeyThemes = append([]string(nil), base.KeyThemes...)
		out.SignificantEvents = append([]string(nil), base.SignificantEvents...)
		out.SuggestedAssignments = append([]SuggestedAssignment(nil), base.SuggestedAssignments...)
		out.ChatLog = append([]ChatTurn(nil), base.ChatLog...)
		out.SelfAssessmentResults = append([]AssessmentResult(nil), base.SelfAssessmentResults...)
	}
	out.SchemaVersion = PersonaSchemaVersion
	out.UserID = userID

	if update == nil {
		return out
	}

	out.PresentingSymptoms = unionStrings(out.PresentingSymptoms, update.PresentingSymptoms)
	out.ObservedPatterns = unionStrings(out.ObservedPatterns, update.ObservedPatterns)
	out.KeyThemes = unionStrings(out.KeyThemes, update.KeyThemes)
	out.SignificantEvents = unionStrings(out.SignificantEvents, update.SignificantEvents)

	if update.ObservedMood.OverallTrend != "" {
		out.ObservedMood.OverallTrend = update.ObservedMood.OverallTrend
	}
	if update.ObservedMood.RecentFluctuations != "" {
		out.ObservedMood.RecentFluctuations = update.ObservedMood.RecentFluctuations
	}
	if update.ObservedBehavior.Avoidance != "" {
		out.ObservedBehavior.Avoidance = update.ObservedBehavior.Avoidance
	}
	if update.ObservedBehavior.Concentration != "" {
		out.ObservedBehavior.Concentration = update.ObservedBehavior.Concentration
	}

	for _, g := range update.CurrentGoals {
		if g.Goal == "" {
			continue
		}
		replaced := false
		for i := range out.CurrentGoals {
			if out.CurrentGoals[i].Goal == g.Goal {
				out.CurrentGoals[i] = g
				replaced = true
				break
			}
		}
		if !replaced {
			out.CurrentGoals = append(out.CurrentGoals, g)
		}
	}

	for _, a := range update.SuggestedAssignments {
		if a.Assignment == "" {
			continue
		}
		replaced := false
		for i := range out.SuggestedAssignments {
			if out.SuggestedAssignments[i].Assignment == a.Assignment {
				out.SuggestedAssignments[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			out.SuggestedAssignments = append(out.SuggestedAssignments, a)
		}
	}

	out.ChatLog = append(out.ChatLog, update.ChatLog...)
	out.SelfAssessmentResults = append(out.SelfAssessmentResults, update.SelfAssessmentResults...)

	return out
}

func unionStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
