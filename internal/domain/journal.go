package domain

import "strings"

type Sleep struct {
	Hours      *float64 `json:"hours,omitempty" yaml:"hours,omitempty" firestore:"hours,omitempty"`
	Quality    string   `json:"quality,omitempty" yaml:"quality,omitempty" firestore:"quality,omitempty"`
	Awakenings *int     `json:"awakenings,omitempty" yaml:"awakenings,omitempty" firestore:"awakenings,omitempty"`
}

type Diet struct {
	GeneralDiet        string `json:"generalDiet,omitempty" yaml:"generalDiet,omitempty" firestore:"generalDiet,omitempty"`
	SugarConsumption   string `json:"sugarConsumption,omitempty" yaml:"sugarConsumption,omitempty" firestore:"sugarConsumption,omitempty"`
	CaffeineIntake     string `json:"caffeineIntake,omitempty" yaml:"caffeineIntake,omitempty" firestore:"caffeineIntake,omitempty"`
	AlcoholConsumption string `json:"alcoholConsumption,omitempty" yaml:"alcoholConsumption,omitempty" firestore:"alcoholConsumption,omitempty"`
	WaterIntake        string `json:"waterIntake,omitempty" yaml:"waterIntake,omitempty" firestore:"waterIntake,omitempty"`
}

type Exercise struct {
	Duration  *int   `json:"duration,omitempty" yaml:"duration,omitempty" firestore:"duration,omitempty"` // minutes
	Type      string `json:"type,omitempty" yaml:"type,omitempty" firestore:"type,omitempty"`
	Intensity string `json:"intensity,omitempty" yaml:"intensity,omitempty" firestore:"intensity,omitempty"`
}

type Mood struct {
	Overall      *int     `json:"overall,omitempty" yaml:"overall,omitempty" firestore:"overall,omitempty"`
	SpecificMood []string `json:"specificMood,omitempty" yaml:"specificMood,omitempty" firestore:"specificMood,omitempty"`
	StressLevel  *int     `json:"stressLevel,omitempty" yaml:"stressLevel,omitempty" firestore:"stressLevel,omitempty"`
}

type MenstrualCycle struct {
	Phase    string   `json:"phase,omitempty" yaml:"phase,omitempty" firestore:"phase,omitempty"`
	Symptoms []string `json:"symptoms,omitempty" yaml:"symptoms,omitempty" firestore:"symptoms,omitempty"`
}

// JournalEntry is one day of tracked well-being data. Date is the natural key
// within a user's entries: writing an entry for an existing date replaces it.
type JournalEntry struct {
	Date string `json:"date" yaml:"date" firestore:"date"`

	Sleep          *Sleep          `json:"sleep,omitempty" yaml:"sleep,omitempty" firestore:"sleep,omitempty"`
	Diet           *Diet           `json:"diet,omitempty" yaml:"diet,omitempty" firestore:"diet,omitempty"`
	Exercise       *Exercise       `json:"exercise,omitempty" yaml:"exercise,omitempty" firestore:"exercise,omitempty"`
	Mood           *Mood           `json:"mood,omitempty" yaml:"mood,omitempty" firestore:"mood,omitempty"`
	MenstrualCycle *MenstrualCycle `json:"menstrualCycle,omitempty" yaml:"menstrualCycle,omitempty" firestore:"menstrualCycle,omitempty"`

	// Lifestyle metrics
	CreativeTime         *int   `json:"creativeTime,omitempty" yaml:"creativeTime,omitempty" firestore:"creativeTime,omitempty"`
	SocialInteractions   *int   `json:"socialInteractions,omitempty" yaml:"socialInteractions,omitempty" firestore:"socialInteractions,omitempty"`
	ScreenTime           *int   `json:"screenTime,omitempty" yaml:"screenTime,omitempty" firestore:"screenTime,omitempty"`
	DailySpending        *int   `json:"dailySpending,omitempty" yaml:"dailySpending,omitempty" firestore:"dailySpending,omitempty"`
	FeelingAboutFinances string `json:"feelingAboutFinances,omitempty" yaml:"feelingAboutFinances,omitempty" firestore:"feelingAboutFinances,omitempty"`
	TimeOutside          *int   `json:"timeOutside,omitempty" yaml:"timeOutside,omitempty" firestore:"timeOutside,omitempty"`

	DailyGratitude []string `json:"dailyGratitude,omitempty" yaml:"dailyGratitude,omitempty" firestore:"dailyGratitude,omitempty"`
	DailyJournal   string   `json:"dailyJournal,omitempty" yaml:"dailyJournal,omitempty" firestore:"dailyJournal,omitempty"`
}

// Validate checks the fields the store relies on.
func (e JournalEntry) Validate() error {
	if strings.TrimSpace(e.Date) == "" {
		return NewValidationError("date", "is required")
	}
	if _, err := ParseDate(e.Date); err != nil {
		return NewValidationError("date", "must be formatted as YYYY-MM-DD")
	}
	return nil
}
