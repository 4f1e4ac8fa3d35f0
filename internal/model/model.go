package model

import (
	"context"
	"sort"
)

// DefaultUserID is used when a request carries no user identity.
const DefaultUserID = "default"

type userCtxKey struct{}

// ContextWithUserID stores the requesting user's identity in the context.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userCtxKey{}, userID)
}

// UserIDFromContext retrieves the user identity from context, or DefaultUserID.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userCtxKey{}).(string)
	if id == "" {
		return DefaultUserID
	}
	return id
}

// Difficulty represents a question difficulty bucket.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// LowRateThreshold is the answer rate (percent) at or below which a question counts as low-performing.
const LowRateThreshold = 40

// TestDataset is the per-user root document: class name -> date label -> session.
type TestDataset map[string]map[string]*ClassSession

// ClassSession is one (class, date) exam instance.
type ClassSession struct {
	ExamText        string           `json:"examText"`
	StudentData     ClassStatistics  `json:"studentData"`
	OverallAnalysis *OverallAnalysis `json:"overallAnalysis,omitempty"`
	QuestionUnitMap QuestionUnitMap  `json:"questionUnitMap,omitempty"`
}

// QuestionUnitMap maps a question number to its concept label.
type QuestionUnitMap map[int]string

// ClassStatistics is the aggregated view of one spreadsheet.
type ClassStatistics struct {
	Students      []StudentRecord `json:"students"`
	ClassAverage  int             `json:"classAverage"`
	AnswerRates   []int           `json:"answerRates"`
	QuestionCount int             `json:"questionCount"`
}

// StudentRecord is one spreadsheet row. Score is nil when the student did not submit.
type StudentRecord struct {
	Name               string              `json:"name"`
	Submitted          bool                `json:"submitted"`
	Score              *int                `json:"score"`
	Answers            []Answer            `json:"answers"`
	IndividualAnalysis *IndividualAnalysis `json:"individualAnalysis,omitempty"`
}

// Answer is the graded mark for one question.
type Answer struct {
	QuestionNumber int  `json:"questionNumber"`
	IsCorrect      bool `json:"isCorrect"`
}

// QuestionAnalysis is the AI commentary on one question.
type QuestionAnalysis struct {
	QuestionNumber int    `json:"questionNumber"`
	Unit           string `json:"unit"`
	AnalysisPoint  string `json:"analysisPoint"`
	Solution       string `json:"solution"`
}

// OverallAnalysis is the class-wide AI narrative, cached once per session.
type OverallAnalysis struct {
	Summary          string             `json:"summary" validate:"required"`
	CommonWeaknesses string             `json:"commonWeaknesses"`
	Recommendations  string             `json:"recommendations"`
	QuestionAnalysis []QuestionAnalysis `json:"questionAnalysis"`
}

// IndividualAnalysis is the per-student AI narrative, cached once per (session, student).
type IndividualAnalysis struct {
	Strengths         string             `json:"strengths" validate:"required"`
	Weaknesses        string             `json:"weaknesses"`
	Recommendations   string             `json:"recommendations"`
	IncorrectAnalysis []QuestionAnalysis `json:"incorrectAnalysis"`
}

// Session returns the session for (class, date), or nil.
func (ds TestDataset) Session(class, date string) *ClassSession {
	if ds == nil {
		return nil
	}
	return ds[class][date]
}

// Put stores a session under (class, date), creating the class bucket if needed.
func (ds TestDataset) Put(class, date string, s *ClassSession) {
	if ds[class] == nil {
		ds[class] = make(map[string]*ClassSession)
	}
	ds[class][date] = s
}

// SessionKey identifies one class session.
type SessionKey struct {
	Class string `json:"class"`
	Date  string `json:"date"`
}

// Keys lists all sessions sorted by class then date.
func (ds TestDataset) Keys() []SessionKey {
	var keys []SessionKey
	for class, dates := range ds {
		for date := range dates {
			keys = append(keys, SessionKey{Class: class, Date: date})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Class != keys[j].Class {
			return keys[i].Class < keys[j].Class
		}
		return keys[i].Date < keys[j].Date
	})
	return keys
}

// Student returns the record with the given name, or nil.
func (cs *ClassStatistics) Student(name string) *StudentRecord {
	for i := range cs.Students {
		if cs.Students[i].Name == name {
			return &cs.Students[i]
		}
	}
	return nil
}

// Incorrect returns the question numbers the student answered incorrectly, in order.
func (s *StudentRecord) Incorrect() []int {
	var out []int
	for _, a := range s.Answers {
		if !a.IsCorrect {
			out = append(out, a.QuestionNumber)
		}
	}
	return out
}

// CorrectCount returns the number of correct answers.
func (s *StudentRecord) CorrectCount() int {
	n := 0
	for _, a := range s.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// SubmittedCount returns the number of students who submitted.
func (cs *ClassStatistics) SubmittedCount() int {
	n := 0
	for _, st := range cs.Students {
		if st.Submitted {
			n++
		}
	}
	return n
}

// LowRateQuestions returns the question numbers whose answer rate is at or
// below LowRateThreshold, in question order.
func (cs *ClassStatistics) LowRateQuestions() []int {
	var out []int
	for i, r := range cs.AnswerRates {
		if r <= LowRateThreshold {
			out = append(out, i+1)
		}
	}
	return out
}

// PerfectQuestions returns the question numbers every submitted student answered correctly.
func (cs *ClassStatistics) PerfectQuestions() []int {
	var out []int
	for i, r := range cs.AnswerRates {
		if r == 100 {
			out = append(out, i+1)
		}
	}
	return out
}

// Rate returns the answer rate for a 1-based question number, or 0 if out of range.
func (cs *ClassStatistics) Rate(q int) int {
	if q < 1 || q > len(cs.AnswerRates) {
		return 0
	}
	return cs.AnswerRates[q-1]
}
