package report

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/examreport/internal/i18n"
	"github.com/pavelanni/examreport/internal/model"
)

func intPtr(v int) *int { return &v }

func answers(marks ...bool) []model.Answer {
	out := make([]model.Answer, len(marks))
	for i, ok := range marks {
		out[i] = model.Answer{QuestionNumber: i + 1, IsCorrect: ok}
	}
	return out
}

func testStats() *model.ClassStatistics {
	return &model.ClassStatistics{
		QuestionCount: 3,
		ClassAverage:  67,
		AnswerRates:   []int{100, 50, 0},
		Students: []model.StudentRecord{
			{Name: "Kim", Submitted: true, Score: intPtr(90), Answers: answers(true, true, false)},
			{Name: "Lee", Submitted: true, Score: intPtr(44), Answers: answers(true, false, false)},
			{Name: "Park", Answers: answers(false, false, false)},
		},
	}
}

func TestDifficulty(t *testing.T) {
	tests := []struct {
		q     int
		class string
		want  model.Difficulty
	}{
		{1, "AlgebraA", model.DifficultyEasy},
		{7, "AlgebraA", model.DifficultyEasy},
		{8, "AlgebraA", model.DifficultyMedium},
		{16, "AlgebraA", model.DifficultyMedium},
		{17, "AlgebraA", model.DifficultyHard},
		{5, "심화A", model.DifficultyEasy},
		{6, "심화A", model.DifficultyMedium},
		{15, "심화A", model.DifficultyMedium},
		{16, "심화A", model.DifficultyHard},
	}
	for _, tt := range tests {
		if got := Difficulty(tt.q, tt.class); got != tt.want {
			t.Errorf("Difficulty(%d, %q) = %q, want %q", tt.q, tt.class, got, tt.want)
		}
	}
}

func TestResolveUnit(t *testing.T) {
	unitMap := model.QuestionUnitMap{1: "class-1", 2: "class-2"}
	individual := &model.IndividualAnalysis{IncorrectAnalysis: []model.QuestionAnalysis{
		{QuestionNumber: 2, Unit: "own-2"},
		{QuestionNumber: 3, Unit: ""},
	}}

	tests := []struct {
		name   string
		q      int
		ind    *model.IndividualAnalysis
		want   string
		wantOK bool
	}{
		{"individual overrides class map", 2, individual, "own-2", true},
		{"falls back to class map", 1, individual, "class-1", true},
		{"empty individual label falls back", 3, individual, "", false},
		{"no individual analysis", 2, nil, "class-2", true},
		{"unresolved", 9, nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveUnit(tt.q, tt.ind, unitMap)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ResolveUnit(%d) = %q, %v, want %q, %v", tt.q, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestBuildClassSummary(t *testing.T) {
	v := BuildClass(ClassInput{ClassName: "AlgebraA", Date: "10월30일", Stats: testStats()})

	if v.Summary.Scores == nil || *v.Summary.Scores != (ScoreSummary{Max: 90, Min: 44, Mean: 67}) {
		t.Errorf("Scores = %+v, want max 90 min 44 mean 67", v.Summary.Scores)
	}
	if v.Summary.SubmittedCount != 2 {
		t.Errorf("SubmittedCount = %d, want 2", v.Summary.SubmittedCount)
	}
	if !reflect.DeepEqual(v.Summary.PerfectQuestions, []int{1}) {
		t.Errorf("PerfectQuestions = %v, want [1]", v.Summary.PerfectQuestions)
	}
	if len(v.Summary.LowRateQuestions) != 1 || v.Summary.LowRateQuestions[0].Number != 3 {
		t.Fatalf("LowRateQuestions = %+v, want only question 3", v.Summary.LowRateQuestions)
	}
	if len(v.Questions) != 3 || len(v.Students) != 3 {
		t.Errorf("got %d questions and %d students, want 3 and 3", len(v.Questions), len(v.Students))
	}
	if v.Students[2].Score != nil || v.Students[2].Submitted {
		t.Error("Park should be listed as not submitted")
	}
}

func TestBuildClassNoSubmissions(t *testing.T) {
	stats := &model.ClassStatistics{QuestionCount: 1, AnswerRates: []int{0}, Students: []model.StudentRecord{{Name: "A"}}}
	v := BuildClass(ClassInput{Stats: stats})
	if v.Summary.Scores != nil {
		t.Errorf("Scores = %+v, want nil", v.Summary.Scores)
	}
	if v.Summary.PerfectQuestions == nil {
		t.Error("PerfectQuestions should be an empty list, not nil")
	}
	if v.Overall.State != StateEmpty {
		t.Errorf("Overall.State = %q, want %q", v.Overall.State, StateEmpty)
	}
	if len(v.Summary.LowRateQuestions) != 1 || v.Summary.LowRateQuestions[0].AnalysisPoint.State != StateEmpty {
		t.Errorf("LowRateQuestions = %+v, want one entry with an empty analysis point", v.Summary.LowRateQuestions)
	}
}

func TestBuildClassLoadStates(t *testing.T) {
	withPoint := &model.OverallAnalysis{Summary: "s", QuestionAnalysis: []model.QuestionAnalysis{{QuestionNumber: 3, AnalysisPoint: "sign errors"}}}
	noEntries := &model.OverallAnalysis{Summary: "s", QuestionAnalysis: []model.QuestionAnalysis{}}

	tests := []struct {
		name        string
		in          ClassInput
		wantOverall LoadState
		wantPoint   LoadState
		wantUnit    LoadState
	}{
		{"not requested", ClassInput{}, StatePending, StatePending, StatePending},
		{"failed", ClassInput{OverallFailed: true, UnitMapFailed: true}, StateFailed, StateFailed, StateFailed},
		{"ready", ClassInput{Overall: withPoint, UnitMap: model.QuestionUnitMap{1: "a"}}, StateReady, StateReady, StateReady},
		{"fetched without entries", ClassInput{Overall: noEntries, UnitMap: model.QuestionUnitMap{2: "b"}}, StateReady, StateEmpty, StateEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Stats = testStats()
			v := BuildClass(tt.in)
			if v.Overall.State != tt.wantOverall {
				t.Errorf("Overall.State = %q, want %q", v.Overall.State, tt.wantOverall)
			}
			if got := v.Summary.LowRateQuestions[0].AnalysisPoint.State; got != tt.wantPoint {
				t.Errorf("AnalysisPoint.State = %q, want %q", got, tt.wantPoint)
			}
			if got := v.Questions[0].Unit.State; got != tt.wantUnit {
				t.Errorf("Questions[0].Unit.State = %q, want %q", got, tt.wantUnit)
			}
		})
	}
}

func TestBuildIndividual(t *testing.T) {
	stats := testStats()
	analysis := &model.IndividualAnalysis{
		Strengths: "equations",
		IncorrectAnalysis: []model.QuestionAnalysis{
			{QuestionNumber: 2, Unit: "own unit", AnalysisPoint: "dropped a sign", Solution: "check signs"},
		},
	}
	v := BuildIndividual(IndividualInput{
		ClassName: "AlgebraA",
		Stats:     stats,
		Student:   &stats.Students[1],
		UnitMap:   model.QuestionUnitMap{2: "class unit", 3: "integrals"},
		Analysis:  analysis,
	})

	if v.Analysis.State != StateReady || v.CorrectCount != 1 || *v.Score != 44 {
		t.Fatalf("unexpected view header: %+v", v)
	}
	if len(v.Incorrect) != 2 {
		t.Fatalf("Incorrect = %d rows, want 2", len(v.Incorrect))
	}
	q2, q3 := v.Incorrect[0], v.Incorrect[1]
	if q2.Unit.Value != "own unit" || q2.AnalysisPoint.Value != "dropped a sign" || q2.Solution != "check signs" {
		t.Errorf("question 2 row = %+v", q2)
	}
	if q3.Unit.Value != "integrals" || q3.AnalysisPoint.State != StateEmpty {
		t.Errorf("question 3 row = %+v", q3)
	}
}

func TestBuildIndividualStates(t *testing.T) {
	stats := testStats()

	pending := BuildIndividual(IndividualInput{Stats: stats, Student: &stats.Students[1]})
	if pending.Analysis.State != StatePending || pending.Incorrect[0].AnalysisPoint.State != StatePending || pending.Incorrect[0].Unit.State != StatePending {
		t.Errorf("pending view = %+v", pending)
	}

	failed := BuildIndividual(IndividualInput{Stats: stats, Student: &stats.Students[1], AnalysisFailed: true, UnitMapFailed: true})
	if failed.Analysis.State != StateFailed || failed.Incorrect[0].AnalysisPoint.State != StateFailed || failed.Incorrect[0].Unit.State != StateFailed {
		t.Errorf("failed view = %+v", failed)
	}

	absent := BuildIndividual(IndividualInput{Stats: stats, Student: &stats.Students[2]})
	if absent.Analysis.State != StateEmpty || len(absent.Incorrect) != 0 {
		t.Errorf("unsubmitted view = %+v", absent)
	}
}

func TestLocalize(t *testing.T) {
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	ctx := i18n.WithLocalizer(context.Background(), i18n.NewLocalizer("ko"))

	v := BuildClass(ClassInput{ClassName: "AlgebraA", Stats: testStats(), OverallFailed: true})
	v.Localize(ctx)

	if v.Overall.Message != "분석을 불러오지 못했습니다. 다시 시도해 주세요." {
		t.Errorf("Overall.Message = %q", v.Overall.Message)
	}
	if v.Questions[0].DifficultyLabel != "하" {
		t.Errorf("DifficultyLabel = %q, want 하", v.Questions[0].DifficultyLabel)
	}
	if v.Questions[0].Unit.Message != "분석 중입니다..." {
		t.Errorf("Unit.Message = %q", v.Questions[0].Unit.Message)
	}
	if v.Questions[0].Label != "1번 문항" {
		t.Errorf("Label = %q, want '1번 문항'", v.Questions[0].Label)
	}
	if v.Summary.SubmittedLabel != "2명 응시" {
		t.Errorf("SubmittedLabel = %q", v.Summary.SubmittedLabel)
	}
	if _, ok := v.Summary.EmptyMessages["lowRateQuestions"]; ok {
		t.Error("lowRateQuestions is not empty and should have no empty message")
	}
}

func TestWriteWorkbook(t *testing.T) {
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	ctx := context.Background()
	v := BuildClass(ClassInput{
		ClassName: "AlgebraA",
		Date:      "10월30일",
		Stats:     testStats(),
		Overall:   &model.OverallAnalysis{QuestionAnalysis: []model.QuestionAnalysis{{QuestionNumber: 3, AnalysisPoint: "sign errors"}}},
		UnitMap:   model.QuestionUnitMap{1: "equations", 2: "factoring", 3: "integrals"},
	})
	v.Localize(ctx)

	var buf bytes.Buffer
	if err := WriteWorkbook(ctx, &buf, &v); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{"Statistics", "Questions", "Students"}) {
		t.Errorf("sheets = %v", got)
	}
	rows, err := f.GetRows("Questions")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Questions rows = %d, want 4", len(rows))
	}
	if want := []string{"3", "0", "Easy", "integrals", "sign errors"}; !reflect.DeepEqual(rows[3], want) {
		t.Errorf("row for question 3 = %v, want %v", rows[3], want)
	}
	students, _ := f.GetRows("Students")
	if len(students) != 4 || students[3][1] != "Not submitted" {
		t.Errorf("students sheet = %v", students)
	}
}
