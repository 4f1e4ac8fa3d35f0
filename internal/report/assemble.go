package report

import (
	"strings"

	"github.com/pavelanni/examreport/internal/model"
)

// ClassInput is everything BuildClass needs. The *Failed flags mark artifacts
// whose fetch was attempted and failed; an absent artifact without the flag is pending.
type ClassInput struct {
	ClassName     string
	Date          string
	Stats         *model.ClassStatistics
	Overall       *model.OverallAnalysis
	OverallFailed bool
	UnitMap       model.QuestionUnitMap
	UnitMapFailed bool
}

// IndividualInput is everything BuildIndividual needs.
type IndividualInput struct {
	ClassName      string
	Date           string
	Stats          *model.ClassStatistics
	Student        *model.StudentRecord
	UnitMap        model.QuestionUnitMap
	UnitMapFailed  bool
	Analysis       *model.IndividualAnalysis
	AnalysisFailed bool
}

// Difficulty buckets a question for the report. Advanced classes (name
// containing "심화") use a shorter easy band.
func Difficulty(question int, className string) model.Difficulty {
	easyMax, mediumMax := 7, 16
	if strings.Contains(className, "심화") {
		easyMax, mediumMax = 5, 15
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

// ResolveUnit returns the concept label for a question: the student's own
// incorrect-answer analysis first, then the class unit map. ok is false when
// neither has a label.
func ResolveUnit(question int, individual *model.IndividualAnalysis, unitMap model.QuestionUnitMap) (unit string, ok bool) {
	if individual != nil {
		for _, qa := range individual.IncorrectAnalysis {
			if qa.QuestionNumber == question && qa.Unit != "" {
				return qa.Unit, true
			}
		}
	}
	if u := unitMap[question]; u != "" {
		return u, true
	}
	return "", false
}

func scoreSummary(stats *model.ClassStatistics) *ScoreSummary {
	var s *ScoreSummary
	for _, st := range stats.Students {
		if !st.Submitted || st.Score == nil {
			continue
		}
		v := *st.Score
		if s == nil {
			s = &ScoreSummary{Max: v, Min: v, Mean: stats.ClassAverage}
			continue
		}
		s.Max = max(s.Max, v)
		s.Min = min(s.Min, v)
	}
	return s
}

func findAnalysis(list []model.QuestionAnalysis, q int) *model.QuestionAnalysis {
	for i := range list {
		if list[i].QuestionNumber == q {
			return &list[i]
		}
	}
	return nil
}

// BuildClass assembles the class report.
func BuildClass(in ClassInput) ClassView {
	stats := in.Stats
	v := ClassView{
		ClassName:     in.ClassName,
		Date:          in.Date,
		QuestionCount: stats.QuestionCount,
		ClassAverage:  stats.ClassAverage,
		Summary: FeatureSummary{
			Scores:           scoreSummary(stats),
			SubmittedCount:   stats.SubmittedCount(),
			PerfectQuestions: stats.PerfectQuestions(),
			LowRateQuestions: []LowRateQuestion{},
		},
		Questions: make([]QuestionRow, 0, stats.QuestionCount),
		Students:  make([]StudentRow, 0, len(stats.Students)),
	}
	if v.Summary.PerfectQuestions == nil {
		v.Summary.PerfectQuestions = []int{}
	}

	// With no submissions there is nothing to analyze and no analysis is fetched.
	noSubmissions := v.Summary.SubmittedCount == 0
	switch {
	case in.Overall != nil:
		v.Overall = ready(in.Overall)
	case noSubmissions:
		v.Overall = Field[*model.OverallAnalysis]{State: StateEmpty}
	default:
		v.Overall = placeholder[*model.OverallAnalysis](in.OverallFailed)
	}

	for _, q := range stats.LowRateQuestions() {
		lq := LowRateQuestion{Number: q, Rate: stats.Rate(q)}
		if in.Overall == nil && noSubmissions {
			lq.AnalysisPoint = Field[string]{State: StateEmpty}
		} else if in.Overall == nil {
			lq.AnalysisPoint = placeholder[string](in.OverallFailed)
		} else if qa := findAnalysis(in.Overall.QuestionAnalysis, q); qa != nil && qa.AnalysisPoint != "" {
			lq.AnalysisPoint = ready(qa.AnalysisPoint)
		} else {
			lq.AnalysisPoint = Field[string]{State: StateEmpty}
		}
		v.Summary.LowRateQuestions = append(v.Summary.LowRateQuestions, lq)
	}

	for q := 1; q <= stats.QuestionCount; q++ {
		row := QuestionRow{Number: q, Rate: stats.Rate(q), Difficulty: Difficulty(q, in.ClassName)}
		switch unit, ok := ResolveUnit(q, nil, in.UnitMap); {
		case ok:
			row.Unit = ready(unit)
		case in.UnitMap != nil:
			row.Unit = Field[string]{State: StateEmpty}
		default:
			row.Unit = placeholder[string](in.UnitMapFailed)
		}
		v.Questions = append(v.Questions, row)
	}

	for _, st := range stats.Students {
		v.Students = append(v.Students, StudentRow{
			Name:         st.Name,
			Submitted:    st.Submitted,
			Score:        st.Score,
			CorrectCount: st.CorrectCount(),
		})
	}
	return v
}

// BuildIndividual assembles one student's report.
func BuildIndividual(in IndividualInput) IndividualView {
	stats, st := in.Stats, in.Student
	v := IndividualView{
		ClassName:     in.ClassName,
		Date:          in.Date,
		StudentName:   st.Name,
		Submitted:     st.Submitted,
		Score:         st.Score,
		ClassAverage:  stats.ClassAverage,
		CorrectCount:  st.CorrectCount(),
		QuestionCount: stats.QuestionCount,
		Incorrect:     []IncorrectRow{},
	}

	switch {
	case !st.Submitted:
		v.Analysis = Field[*model.IndividualAnalysis]{State: StateEmpty}
		return v
	case in.Analysis != nil:
		v.Analysis = ready(in.Analysis)
	default:
		v.Analysis = placeholder[*model.IndividualAnalysis](in.AnalysisFailed)
	}

	for _, q := range st.Incorrect() {
		row := IncorrectRow{Number: q, Rate: stats.Rate(q), Difficulty: Difficulty(q, in.ClassName)}

		switch unit, ok := ResolveUnit(q, in.Analysis, in.UnitMap); {
		case ok:
			row.Unit = ready(unit)
		case in.UnitMap != nil:
			row.Unit = Field[string]{State: StateEmpty}
		default:
			row.Unit = placeholder[string](in.UnitMapFailed)
		}

		if in.Analysis == nil {
			row.AnalysisPoint = placeholder[string](in.AnalysisFailed)
		} else if qa := findAnalysis(in.Analysis.IncorrectAnalysis, q); qa != nil && qa.AnalysisPoint != "" {
			row.AnalysisPoint = ready(qa.AnalysisPoint)
			row.Solution = qa.Solution
		} else {
			row.AnalysisPoint = Field[string]{State: StateEmpty}
		}
		v.Incorrect = append(v.Incorrect, row)
	}
	return v
}
