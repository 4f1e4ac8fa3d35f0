package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/examreport/internal/model"
)

// Exam text budgets in characters per prompt kind.
const (
	UnitMapExamBudget    = 15000
	OverallExamBudget    = 8000
	IndividualExamBudget = 8000
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var examTextTagRegex = regexp.MustCompile(`(?i)</?\s*exam-text\b[^>]*>`)

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[string]*template.Template
)

// UnitMapData holds template data for the unit map prompt.
type UnitMapData struct {
	ClassName     string
	QuestionCount int
	ExamText      string
}

// LowQuestion is one low-performing question in the overall prompt.
type LowQuestion struct {
	Number     int
	Rate       int
	ErrorRate  int
	Difficulty model.Difficulty
}

// OverallData holds template data for the overall analysis prompt.
type OverallData struct {
	ClassName     string
	QuestionCount int
	ClassAverage  int
	Threshold     int
	LowQuestions  []LowQuestion
	ExamText      string
}

// IncorrectQuestion is one incorrectly answered question in the individual prompt.
type IncorrectQuestion struct {
	Number     int
	Unit       string
	Difficulty model.Difficulty
	Rate       int
}

// IndividualData holds template data for the individual analysis prompt.
type IndividualData struct {
	ClassName     string
	StudentName   string
	Score         int
	CorrectCount  int
	QuestionCount int
	Incorrect     []IncorrectQuestion
	ExamText      string
}

// Load parses the embedded prompt templates. It is safe to call more than once.
func Load() error {
	loadOnce.Do(func() {
		templates = make(map[string]*template.Template)
		for _, name := range []string{"unitmap", "overall", "individual"} {
			file := "templates/" + name + ".tmpl"
			content, err := templateFS.ReadFile(file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New(name).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			templates[name] = tmpl
		}
	})
	return loadErr
}

func execute(name string, data any) (string, error) {
	if err := Load(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := templates[name].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s prompt: %w", name, err)
	}
	return buf.String(), nil
}

// BuildUnitMapPrompt asks for a concept label for every question of the session.
func BuildUnitMapPrompt(className string, session *model.ClassSession) (string, error) {
	return execute("unitmap", UnitMapData{
		ClassName:     className,
		QuestionCount: session.StudentData.QuestionCount,
		ExamText:      examText(session.ExamText, UnitMapExamBudget),
	})
}

// SortBySeverity orders question numbers by answer rate ascending, ties by number.
func SortBySeverity(questions []int, stats *model.ClassStatistics) []int {
	out := append([]int(nil), questions...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := stats.Rate(out[i]), stats.Rate(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

// BuildOverallPrompt asks for the class-wide analysis of the low-performing questions.
func BuildOverallPrompt(className string, session *model.ClassSession) (string, error) {
	stats := &session.StudentData
	var low []LowQuestion
	for _, q := range SortBySeverity(stats.LowRateQuestions(), stats) {
		rate := stats.Rate(q)
		low = append(low, LowQuestion{
			Number:     q,
			Rate:       rate,
			ErrorRate:  100 - rate,
			Difficulty: PromptDifficulty(q, className),
		})
	}
	return execute("overall", OverallData{
		ClassName:     className,
		QuestionCount: stats.QuestionCount,
		ClassAverage:  stats.ClassAverage,
		Threshold:     model.LowRateThreshold,
		LowQuestions:  low,
		ExamText:      examText(session.ExamText, OverallExamBudget),
	})
}

// BuildIndividualPrompt asks for one student's analysis. The session's unit
// map supplies the concept label of each incorrect question.
func BuildIndividualPrompt(className string, session *model.ClassSession, student *model.StudentRecord) (string, error) {
	stats := &session.StudentData
	var incorrect []IncorrectQuestion
	for _, q := range student.Incorrect() {
		unit := session.QuestionUnitMap[q]
		if unit == "" {
			unit = "unknown"
		}
		incorrect = append(incorrect, IncorrectQuestion{
			Number:     q,
			Unit:       unit,
			Difficulty: PromptDifficulty(q, className),
			Rate:       stats.Rate(q),
		})
	}
	score := 0
	if student.Score != nil {
		score = *student.Score
	}
	return execute("individual", IndividualData{
		ClassName:     className,
		StudentName:   student.Name,
		Score:         score,
		CorrectCount:  student.CorrectCount(),
		QuestionCount: stats.QuestionCount,
		Incorrect:     incorrect,
		ExamText:      examText(session.ExamText, IndividualExamBudget),
	})
}

// PromptDifficulty buckets a question for prompt context. Advanced classes
// (name containing "심화") front-load harder questions.
func PromptDifficulty(question int, className string) model.Difficulty {
	easyMax, mediumMax := 8, 17
	if strings.Contains(className, "심화") {
		easyMax, mediumMax = 4, 14
	}
	switch {
	case question <= easyMax:
		return model.DifficultyEasy
	case question <= mediumMax:
		return model.DifficultyMedium
	default:
		return model.DifficultyHard
	}
}

func examText(text string, budget int) string {
	text = strings.TrimSpace(examTextTagRegex.ReplaceAllString(text, ""))
	if text == "" {
		return "[No exam text provided]"
	}
	if utf8.RuneCountInString(text) > budget {
		text = string([]rune(text)[:budget])
	}
	return text
}
