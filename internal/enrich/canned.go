package enrich

import "github.com/pavelanni/examreport/internal/model"

// NoIssuesOverall is used when no question is at or below the low-rate threshold.
func NoIssuesOverall() *model.OverallAnalysis {
	return &model.OverallAnalysis{
		Summary:          "Every question was answered correctly by more than 40% of the class. No question needs a class-wide review.",
		CommonWeaknesses: "No common weaknesses were found.",
		Recommendations:  "Keep the current review routine and move on to the next unit.",
		QuestionAnalysis: []model.QuestionAnalysis{},
	}
}

// PerfectScoreIndividual is used for a student with no incorrect answers.
func PerfectScoreIndividual() *model.IndividualAnalysis {
	return &model.IndividualAnalysis{
		Strengths:         "Answered every question correctly.",
		Weaknesses:        "No weaknesses were found on this exam.",
		Recommendations:   "Try more challenging problems to deepen the concepts covered.",
		IncorrectAnalysis: []model.QuestionAnalysis{},
	}
}
