package stats

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/pavelanni/examreport/internal/ingest"
	"github.com/pavelanni/examreport/internal/model"
)

func exampleSheet() *ingest.Sheet {
	return &ingest.Sheet{
		Headers: []string{"student", "score", "1", "2"},
		Rows: []map[string]string{
			{"student": "Kim", "score": "90", "1": "O", "2": "X"},
			{"student": "Lee", "score": "70", "1": "X", "2": "X"},
		},
	}
}

func TestAggregateExample(t *testing.T) {
	got, err := Aggregate(exampleSheet(), DefaultColumns())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got.QuestionCount != 2 {
		t.Errorf("QuestionCount = %d, want 2", got.QuestionCount)
	}
	if got.ClassAverage != 80 {
		t.Errorf("ClassAverage = %d, want 80", got.ClassAverage)
	}
	if len(got.AnswerRates) != 2 || got.AnswerRates[0] != 50 || got.AnswerRates[1] != 0 {
		t.Errorf("AnswerRates = %v, want [50 0]", got.AnswerRates)
	}
	for _, name := range []string{"Kim", "Lee"} {
		s := got.Student(name)
		if s == nil || !s.Submitted {
			t.Errorf("%s should be submitted", name)
		}
	}
	if *got.Student("Kim").Score != 90 {
		t.Errorf("Kim score = %d, want 90", *got.Student("Kim").Score)
	}
}

func TestAggregatePaddedQuestionHeaders(t *testing.T) {
	sheet := &ingest.Sheet{
		Headers: []string{"학생", "점수", "02", "01", "04"},
		Rows: []map[string]string{
			{"학생": "Kim", "점수": "90", "01": "O", "02": "X", "04": "O"},
			{"학생": "Lee", "점수": "60", "01": "O", "02": "O", "04": "X"},
		},
	}
	got, err := Aggregate(sheet, DefaultColumns())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got.QuestionCount != 3 {
		t.Fatalf("QuestionCount = %d, want 3", got.QuestionCount)
	}
	if !reflect.DeepEqual(got.AnswerRates, []int{100, 50, 50}) {
		t.Errorf("AnswerRates = %v, want [100 50 50]", got.AnswerRates)
	}
	kim := got.Student("Kim")
	if kim == nil || !kim.Submitted {
		t.Fatalf("Kim should be submitted, got %+v", kim)
	}
	want := []model.Answer{
		{QuestionNumber: 1, IsCorrect: true},
		{QuestionNumber: 2, IsCorrect: false},
		{QuestionNumber: 3, IsCorrect: true},
	}
	if !reflect.DeepEqual(kim.Answers, want) {
		t.Errorf("Kim answers = %+v, want %+v", kim.Answers, want)
	}
}

func TestQuestionHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    []string
	}{
		{"plain", []string{"student", "1", "2"}, []string{"1", "2"}},
		{"padded and signed", []string{"01", "+2", "student"}, []string{"01", "+2"}},
		{"out of order", []string{"3", "1", "2"}, []string{"1", "2", "3"}},
		{"zero and negative skipped", []string{"0", "-1", "1"}, []string{"1"}},
		{"duplicate number keeps first", []string{"1", "01"}, []string{"1"}},
		{"none", []string{"student", "score"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := questionHeaders(tt.headers); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("questionHeaders(%v) = %v, want %v", tt.headers, got, tt.want)
			}
		})
	}
}

func TestAggregateNoSubmissions(t *testing.T) {
	sheet := &ingest.Sheet{
		Headers: []string{"학생", "점수", "1", "2", "3"},
		Rows: []map[string]string{
			{"학생": "Kim", "점수": "", "1": "", "2": "-", "3": ""},
			{"학생": "Lee", "점수": "0", "1": "?", "2": "", "3": ""},
		},
	}
	got, err := Aggregate(sheet, DefaultColumns())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got.ClassAverage != 0 {
		t.Errorf("ClassAverage = %d, want 0", got.ClassAverage)
	}
	if len(got.AnswerRates) != 3 {
		t.Fatalf("len(AnswerRates) = %d, want 3", len(got.AnswerRates))
	}
	for i, r := range got.AnswerRates {
		if r != 0 {
			t.Errorf("AnswerRates[%d] = %d, want 0", i, r)
		}
	}
	for _, s := range got.Students {
		if s.Submitted || s.Score != nil {
			t.Errorf("%s: submitted=%v score=%v, want unsubmitted with nil score", s.Name, s.Submitted, s.Score)
		}
		if len(s.Answers) != got.QuestionCount {
			t.Errorf("%s: len(Answers) = %d, want %d", s.Name, len(s.Answers), got.QuestionCount)
		}
	}
}

func TestAggregateSkipsSummaryRowAndNormalizesMarks(t *testing.T) {
	sheet := &ingest.Sheet{
		Headers: []string{"학생 이름", "총 점수", "1", "2", "비고"},
		Rows: []map[string]string{
			{"학생 이름": "Kim", "총 점수": "100", "1": " o ", "2": "o"},
			{"학생 이름": "Park", "총 점수": "", "1": "", "2": ""},
			{"학생 이름": "Lee", "총 점수": "50", "1": "x", "2": "O"},
			{"학생 이름": "평균", "총 점수": "12", "1": "99%", "2": "1%"},
		},
	}
	got, err := Aggregate(sheet, DefaultColumns())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(got.Students) != 3 {
		t.Fatalf("expected 3 students (summary row skipped), got %d", len(got.Students))
	}
	if got.Students[1].Name != "Park" || got.Students[1].Submitted {
		t.Errorf("Park should be second and unsubmitted: %+v", got.Students[1])
	}
	if got.ClassAverage != 75 {
		t.Errorf("ClassAverage = %d, want 75", got.ClassAverage)
	}
	if got.AnswerRates[0] != 50 || got.AnswerRates[1] != 100 {
		t.Errorf("AnswerRates = %v, want [50 100]", got.AnswerRates)
	}
}

func TestAggregateRoundsHalfUp(t *testing.T) {
	sheet := &ingest.Sheet{
		Headers: []string{"student", "score", "1"},
		Rows: []map[string]string{
			{"student": "A", "score": "1", "1": "O"},
			{"student": "B", "score": "2", "1": "X"},
			{"student": "C", "score": "2", "1": "X"},
		},
	}
	got, err := Aggregate(sheet, DefaultColumns())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	// 5/3 = 1.67 -> 2, 100/3 = 33.3 -> 33
	if got.ClassAverage != 2 {
		t.Errorf("ClassAverage = %d, want 2", got.ClassAverage)
	}
	if got.AnswerRates[0] != 33 {
		t.Errorf("AnswerRates[0] = %d, want 33", got.AnswerRates[0])
	}
}

func TestAggregateCustomAlphabet(t *testing.T) {
	cols := DefaultColumns()
	cols.Correct, cols.Incorrect = "✓", "✗"
	sheet := &ingest.Sheet{
		Headers: []string{"student", "score", "1"},
		Rows: []map[string]string{
			{"student": "A", "score": "10", "1": "✓"},
			{"student": "B", "score": "0", "1": "O"},
		},
	}
	got, err := Aggregate(sheet, cols)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !got.Students[0].Submitted || got.Students[1].Submitted {
		t.Errorf("submission flags = %v/%v, want true/false", got.Students[0].Submitted, got.Students[1].Submitted)
	}
	if got.AnswerRates[0] != 100 {
		t.Errorf("AnswerRates[0] = %d, want 100", got.AnswerRates[0])
	}
}

func TestAggregateMissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		column  string
	}{
		{"no student", []string{"score", "1"}, "student"},
		{"no score", []string{"student", "1"}, "score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(&ingest.Sheet{Headers: tt.headers}, DefaultColumns())
			var mce *MissingColumnError
			if !errors.As(err, &mce) {
				t.Fatalf("expected *MissingColumnError, got %v", err)
			}
			if mce.Column != tt.column {
				t.Errorf("Column = %q, want %q", mce.Column, tt.column)
			}
			if got != nil {
				t.Error("expected no partial statistics")
			}
		})
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	a, err := Aggregate(exampleSheet(), DefaultColumns())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	b, err := Aggregate(exampleSheet(), DefaultColumns())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Errorf("aggregation not idempotent:\n%s\n%s", ja, jb)
	}
}

func TestPreserveCarriesCachedAnalyses(t *testing.T) {
	stats1, _ := Aggregate(exampleSheet(), DefaultColumns())
	prev := &model.ClassSession{
		ExamText:        "old",
		StudentData:     *stats1,
		OverallAnalysis: &model.OverallAnalysis{Summary: "cached"},
		QuestionUnitMap: model.QuestionUnitMap{1: "fractions", 2: "ratios"},
	}
	prev.StudentData.Student("Kim").IndividualAnalysis = &model.IndividualAnalysis{Strengths: "kim-cached"}

	sheet := exampleSheet()
	sheet.Rows = append(sheet.Rows, map[string]string{"student": "Choi", "score": "100", "1": "O", "2": "O"})
	stats2, _ := Aggregate(sheet, DefaultColumns())
	next := &model.ClassSession{ExamText: "new", StudentData: *stats2}

	Preserve(prev, next)

	if next.OverallAnalysis == nil || next.OverallAnalysis.Summary != "cached" {
		t.Error("overall analysis not preserved")
	}
	if next.QuestionUnitMap[2] != "ratios" {
		t.Error("unit map not preserved")
	}
	if ia := next.StudentData.Student("Kim").IndividualAnalysis; ia == nil || ia.Strengths != "kim-cached" {
		t.Error("Kim's individual analysis not preserved")
	}
	if next.StudentData.Student("Choi").IndividualAnalysis != nil {
		t.Error("new student should have no analysis")
	}
	if next.ExamText != "new" {
		t.Error("exam text should come from the new upload")
	}
}

func TestPreserveKeepsNewerValues(t *testing.T) {
	prev := &model.ClassSession{OverallAnalysis: &model.OverallAnalysis{Summary: "old"}}
	next := &model.ClassSession{OverallAnalysis: &model.OverallAnalysis{Summary: "new"}}
	Preserve(prev, next)
	if next.OverallAnalysis.Summary != "new" {
		t.Error("Preserve must not overwrite a present value")
	}
	Preserve(nil, next)
}
