package model

// cloner deep-copies a dataset. Every analysis pointer is copied at most once
// per call: a pointer that has already been copied is omitted from the output.
type cloner struct {
	seen map[any]struct{}
}

func newCloner() *cloner {
	return &cloner{seen: make(map[any]struct{})}
}

func (c *cloner) visit(p any) bool {
	if _, ok := c.seen[p]; ok {
		return false
	}
	c.seen[p] = struct{}{}
	return true
}

// Clone returns a deep copy of the dataset.
func (ds TestDataset) Clone() TestDataset {
	return newCloner().dataset(ds)
}

// Clone returns a deep copy of the session.
func (s *ClassSession) Clone() *ClassSession {
	return newCloner().session(s)
}

func (c *cloner) dataset(ds TestDataset) TestDataset {
	out := make(TestDataset, len(ds))
	for class, dates := range ds {
		bucket := make(map[string]*ClassSession, len(dates))
		for date, s := range dates {
			if s == nil || !c.visit(s) {
				continue
			}
			bucket[date] = c.session(s)
		}
		out[class] = bucket
	}
	return out
}

func (c *cloner) session(s *ClassSession) *ClassSession {
	if s == nil {
		return nil
	}
	out := &ClassSession{
		ExamText:    s.ExamText,
		StudentData: c.statistics(s.StudentData),
	}
	if s.OverallAnalysis != nil && c.visit(s.OverallAnalysis) {
		out.OverallAnalysis = s.OverallAnalysis.clone()
	}
	if s.QuestionUnitMap != nil {
		out.QuestionUnitMap = make(QuestionUnitMap, len(s.QuestionUnitMap))
		for q, unit := range s.QuestionUnitMap {
			out.QuestionUnitMap[q] = unit
		}
	}
	return out
}

func (c *cloner) statistics(cs ClassStatistics) ClassStatistics {
	out := ClassStatistics{
		ClassAverage:  cs.ClassAverage,
		QuestionCount: cs.QuestionCount,
	}
	if cs.AnswerRates != nil {
		out.AnswerRates = append([]int{}, cs.AnswerRates...)
	}
	if cs.Students != nil {
		out.Students = make([]StudentRecord, len(cs.Students))
		for i, st := range cs.Students {
			out.Students[i] = c.student(st)
		}
	}
	return out
}

func (c *cloner) student(s StudentRecord) StudentRecord {
	out := StudentRecord{
		Name:      s.Name,
		Submitted: s.Submitted,
	}
	if s.Score != nil {
		v := *s.Score
		out.Score = &v
	}
	if s.Answers != nil {
		out.Answers = append([]Answer{}, s.Answers...)
	}
	if s.IndividualAnalysis != nil && c.visit(s.IndividualAnalysis) {
		out.IndividualAnalysis = s.IndividualAnalysis.clone()
	}
	return out
}

func (a *OverallAnalysis) clone() *OverallAnalysis {
	out := *a
	out.QuestionAnalysis = cloneAnalyses(a.QuestionAnalysis)
	return &out
}

func (a *IndividualAnalysis) clone() *IndividualAnalysis {
	out := *a
	out.IncorrectAnalysis = cloneAnalyses(a.IncorrectAnalysis)
	return &out
}

func cloneAnalyses(list []QuestionAnalysis) []QuestionAnalysis {
	if list == nil {
		return nil
	}
	return append([]QuestionAnalysis{}, list...)
}
