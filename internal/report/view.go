// Package report assembles display models for class and individual exam reports.
package report

import "github.com/pavelanni/examreport/internal/model"

// LoadState is the loading state of an AI-derived field.
type LoadState string

const (
	// StatePending means the artifact has not been fetched yet.
	StatePending LoadState = "pending"
	// StateFailed means the fetch was attempted and failed.
	StateFailed LoadState = "failed"
	// StateReady means the value is present.
	StateReady LoadState = "ready"
	// StateEmpty means the artifact is present but has nothing for this item.
	StateEmpty LoadState = "empty"
)

// Field is an AI-derived value together with its loading state.
// Message carries the localized placeholder for non-ready states.
type Field[T any] struct {
	State   LoadState `json:"state"`
	Value   T         `json:"value,omitempty"`
	Message string    `json:"message,omitempty"`
}

func ready[T any](v T) Field[T] { return Field[T]{State: StateReady, Value: v} }

func placeholder[T any](failed bool) Field[T] {
	if failed {
		return Field[T]{State: StateFailed}
	}
	return Field[T]{State: StatePending}
}

// ScoreSummary is the max/min/mean over submitted students.
type ScoreSummary struct {
	Max  int `json:"max"`
	Min  int `json:"min"`
	Mean int `json:"mean"`
}

// LowRateQuestion is a question at or below the low-rate threshold.
type LowRateQuestion struct {
	Number        int           `json:"number"`
	Label         string        `json:"label,omitempty"`
	Rate          int           `json:"rate"`
	AnalysisPoint Field[string] `json:"analysisPoint"`
}

// FeatureSummary is the headline block of a class report.
type FeatureSummary struct {
	// Scores is nil when no student submitted.
	Scores           *ScoreSummary     `json:"scores"`
	SubmittedCount   int               `json:"submittedCount"`
	SubmittedLabel   string            `json:"submittedLabel,omitempty"`
	PerfectQuestions []int             `json:"perfectQuestions"`
	LowRateQuestions []LowRateQuestion `json:"lowRateQuestions"`
	EmptyMessages    map[string]string `json:"emptyMessages,omitempty"`
}

// QuestionRow is one question in the class report table.
type QuestionRow struct {
	Number          int              `json:"number"`
	Label           string           `json:"label,omitempty"`
	Rate            int              `json:"rate"`
	Difficulty      model.Difficulty `json:"difficulty"`
	DifficultyLabel string           `json:"difficultyLabel,omitempty"`
	Unit            Field[string]    `json:"unit"`
}

// StudentRow is one student in the class report table.
type StudentRow struct {
	Name         string `json:"name"`
	Submitted    bool   `json:"submitted"`
	Score        *int   `json:"score"`
	CorrectCount int    `json:"correctCount"`
}

// ClassView is the display model of a class report.
type ClassView struct {
	ClassName     string                        `json:"className"`
	Date          string                        `json:"date"`
	QuestionCount int                           `json:"questionCount"`
	ClassAverage  int                           `json:"classAverage"`
	Summary       FeatureSummary                `json:"summary"`
	Overall       Field[*model.OverallAnalysis] `json:"overall"`
	Questions     []QuestionRow                 `json:"questions"`
	Students      []StudentRow                  `json:"students"`
}

// IncorrectRow is one incorrectly answered question in an individual report.
type IncorrectRow struct {
	Number          int              `json:"number"`
	Label           string           `json:"label,omitempty"`
	Rate            int              `json:"rate"`
	Difficulty      model.Difficulty `json:"difficulty"`
	DifficultyLabel string           `json:"difficultyLabel,omitempty"`
	Unit            Field[string]    `json:"unit"`
	AnalysisPoint   Field[string]    `json:"analysisPoint"`
	Solution        string           `json:"solution,omitempty"`
}

// IndividualView is the display model of one student's report.
type IndividualView struct {
	ClassName     string                           `json:"className"`
	Date          string                           `json:"date"`
	StudentName   string                           `json:"studentName"`
	Submitted     bool                             `json:"submitted"`
	Score         *int                             `json:"score"`
	ClassAverage  int                              `json:"classAverage"`
	CorrectCount  int                              `json:"correctCount"`
	QuestionCount int                              `json:"questionCount"`
	Analysis      Field[*model.IndividualAnalysis] `json:"analysis"`
	Incorrect     []IncorrectRow                   `json:"incorrect"`
}
