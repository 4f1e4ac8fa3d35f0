package report

import (
	"context"

	"github.com/pavelanni/examreport/internal/i18n"
	"github.com/pavelanni/examreport/internal/model"
)

var difficultyMsg = map[model.Difficulty]string{
	model.DifficultyEasy:   "DifficultyEasy",
	model.DifficultyMedium: "DifficultyMedium",
	model.DifficultyHard:   "DifficultyHard",
}

func questionLabel(ctx context.Context, n int) string {
	return i18n.Td(ctx, "QuestionN", map[string]any{"N": n})
}

func message[T any](ctx context.Context, f *Field[T], emptyMsgID string) {
	switch f.State {
	case StatePending:
		f.Message = i18n.T(ctx, "AnalysisPending")
	case StateFailed:
		f.Message = i18n.T(ctx, "AnalysisFailed")
	case StateEmpty:
		f.Message = i18n.T(ctx, emptyMsgID)
	}
}

// Localize fills placeholder messages and labels in the request language.
func (v *ClassView) Localize(ctx context.Context) {
	overallEmpty := "NoAnalysisPoint"
	if v.Summary.SubmittedCount == 0 {
		overallEmpty = "NoSubmissions"
	}
	message(ctx, &v.Overall, overallEmpty)
	v.Summary.SubmittedLabel = i18n.Tp(ctx, "SubmittedCount", v.Summary.SubmittedCount)

	v.Summary.EmptyMessages = map[string]string{}
	if v.Summary.Scores == nil {
		v.Summary.EmptyMessages["scores"] = i18n.T(ctx, "NoSubmissions")
	}
	if len(v.Summary.PerfectQuestions) == 0 {
		v.Summary.EmptyMessages["perfectQuestions"] = i18n.T(ctx, "NoPerfectQuestions")
	}
	if len(v.Summary.LowRateQuestions) == 0 {
		v.Summary.EmptyMessages["lowRateQuestions"] = i18n.T(ctx, "NoLowRateQuestions")
	}
	for i := range v.Summary.LowRateQuestions {
		v.Summary.LowRateQuestions[i].Label = questionLabel(ctx, v.Summary.LowRateQuestions[i].Number)
		message(ctx, &v.Summary.LowRateQuestions[i].AnalysisPoint, overallEmpty)
	}
	for i := range v.Questions {
		q := &v.Questions[i]
		q.Label = questionLabel(ctx, q.Number)
		q.DifficultyLabel = i18n.T(ctx, difficultyMsg[q.Difficulty])
		message(ctx, &q.Unit, "UnresolvedUnit")
	}
}

// Localize fills placeholder messages and labels in the request language.
func (v *IndividualView) Localize(ctx context.Context) {
	message(ctx, &v.Analysis, "NotSubmitted")
	for i := range v.Incorrect {
		r := &v.Incorrect[i]
		r.Label = questionLabel(ctx, r.Number)
		r.DifficultyLabel = i18n.T(ctx, difficultyMsg[r.Difficulty])
		message(ctx, &r.Unit, "UnresolvedUnit")
		message(ctx, &r.AnalysisPoint, "NoAnalysisPoint")
	}
}
