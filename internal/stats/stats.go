// Package stats turns parsed spreadsheet rows into per-class statistics.
package stats

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pavelanni/examreport/internal/ingest"
	"github.com/pavelanni/examreport/internal/model"
)

// Columns describes how a results spreadsheet is laid out.
type Columns struct {
	// StudentLabels and ScoreLabels are matched as case-insensitive substrings of header text.
	StudentLabels []string
	ScoreLabels   []string
	// SummaryRowMarkers are student-cell values of the precomputed summary row, which is skipped.
	SummaryRowMarkers []string
	// Correct and Incorrect form the two-symbol correctness alphabet. Any other cell content
	// counts as unanswered.
	Correct   string
	Incorrect string
}

// DefaultColumns matches the Korean export format as well as English headers.
func DefaultColumns() Columns {
	return Columns{
		StudentLabels:     []string{"학생", "student"},
		ScoreLabels:       []string{"점수", "score"},
		SummaryRowMarkers: []string{"평균", "average"},
		Correct:           "O",
		Incorrect:         "X",
	}
}

// MissingColumnError reports a spreadsheet without a required header.
type MissingColumnError struct {
	Column  string
	Headers []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing %s column (headers: %s)", e.Column, strings.Join(e.Headers, ", "))
}

// Aggregate builds class statistics from a parsed sheet. It is all-or-nothing:
// on error no statistics are returned.
func Aggregate(sheet *ingest.Sheet, cols Columns) (*model.ClassStatistics, error) {
	studentCol := findHeader(sheet.Headers, cols.StudentLabels)
	if studentCol == "" {
		return nil, &MissingColumnError{Column: "student", Headers: sheet.Headers}
	}
	scoreCol := findHeader(sheet.Headers, cols.ScoreLabels)
	if scoreCol == "" {
		return nil, &MissingColumnError{Column: "score", Headers: sheet.Headers}
	}

	questionCols := questionHeaders(sheet.Headers)
	questionCount := len(questionCols)

	correctMark := strings.ToUpper(strings.TrimSpace(cols.Correct))
	incorrectMark := strings.ToUpper(strings.TrimSpace(cols.Incorrect))

	stats := &model.ClassStatistics{
		Students:      []model.StudentRecord{},
		AnswerRates:   make([]int, questionCount),
		QuestionCount: questionCount,
	}

	for _, row := range sheet.Rows {
		name := strings.TrimSpace(row[studentCol])
		if isSummaryRow(name, cols.SummaryRowMarkers) {
			continue
		}

		rec := model.StudentRecord{
			Name:    name,
			Answers: make([]model.Answer, questionCount),
		}
		for q := 1; q <= questionCount; q++ {
			mark := strings.ToUpper(strings.TrimSpace(row[questionCols[q-1]]))
			if mark == correctMark || mark == incorrectMark {
				rec.Submitted = true
			}
			rec.Answers[q-1] = model.Answer{QuestionNumber: q, IsCorrect: mark == correctMark}
		}
		if rec.Submitted {
			score := parseScore(row[scoreCol])
			if score == nil {
				slog.Warn("unparsable score for submitted student, counting as 0", "student", name, "value", row[scoreCol])
				zero := 0
				score = &zero
			}
			rec.Score = score
		}
		stats.Students = append(stats.Students, rec)
	}

	submitted, sum := 0, 0
	correct := make([]int, questionCount)
	for _, s := range stats.Students {
		if !s.Submitted {
			continue
		}
		submitted++
		sum += *s.Score
		for i, a := range s.Answers {
			if a.IsCorrect {
				correct[i]++
			}
		}
	}
	if submitted > 0 {
		stats.ClassAverage = roundHalfUp(float64(sum) / float64(submitted))
		for i := range correct {
			stats.AnswerRates[i] = roundHalfUp(100 * float64(correct[i]) / float64(submitted))
		}
	}
	return stats, nil
}

// questionHeaders returns the headers that name a question, ordered by the
// number they carry ("01" and "1" both name question 1). Question numbers are
// the 1-based positions in that order, so a gap in the header numbering does
// not produce an empty question. A repeated number keeps its first column.
func questionHeaders(headers []string) []string {
	type col struct {
		n      int
		header string
	}
	var cols []col
	seen := make(map[int]bool)
	for _, h := range headers {
		n, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil || n < 1 || seen[n] {
			continue
		}
		seen[n] = true
		cols = append(cols, col{n: n, header: h})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].n < cols[j].n })

	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.header
	}
	return out
}

func findHeader(headers, labels []string) string {
	for _, h := range headers {
		lower := strings.ToLower(h)
		for _, l := range labels {
			if l != "" && strings.Contains(lower, strings.ToLower(l)) {
				return h
			}
		}
	}
	return ""
}

func isSummaryRow(name string, markers []string) bool {
	for _, m := range markers {
		if strings.EqualFold(name, m) {
			return true
		}
	}
	return false
}

func parseScore(cell string) *int {
	cell = strings.TrimSpace(cell)
	if v, err := strconv.Atoi(cell); err == nil {
		return &v
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		v := roundHalfUp(f)
		return &v
	}
	return nil
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
