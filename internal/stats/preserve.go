package stats

import "github.com/pavelanni/examreport/internal/model"

// Preserve carries AI-derived fields from prev into next, which was rebuilt
// from newly uploaded files. Individual analyses follow the student name.
// Values already present on next are kept.
func Preserve(prev, next *model.ClassSession) {
	if prev == nil || next == nil {
		return
	}
	if next.OverallAnalysis == nil {
		next.OverallAnalysis = prev.OverallAnalysis
	}
	if next.QuestionUnitMap == nil {
		next.QuestionUnitMap = prev.QuestionUnitMap
	}

	cached := make(map[string]*model.IndividualAnalysis)
	for _, s := range prev.StudentData.Students {
		if s.IndividualAnalysis != nil {
			cached[s.Name] = s.IndividualAnalysis
		}
	}
	for i := range next.StudentData.Students {
		s := &next.StudentData.Students[i]
		if s.IndividualAnalysis == nil {
			s.IndividualAnalysis = cached[s.Name]
		}
	}
}
