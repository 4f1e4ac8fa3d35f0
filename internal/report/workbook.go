package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/examreport/internal/i18n"
)

// WriteWorkbook exports a class view as an XLSX workbook with statistics,
// questions and students sheets. Labels follow the context language.
func WriteWorkbook(ctx context.Context, w io.Writer, v *ClassView) error {
	f := excelize.NewFile()
	defer f.Close()

	stats := i18n.T(ctx, "SheetStatistics")
	if err := f.SetSheetName("Sheet1", stats); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	rows := [][]any{
		{i18n.T(ctx, "ColMetric"), i18n.T(ctx, "ColValue")},
		{i18n.T(ctx, "ColClass"), v.ClassName},
		{i18n.T(ctx, "ColDate"), v.Date},
		{i18n.T(ctx, "ColQuestion"), v.QuestionCount},
		{i18n.T(ctx, "ColSubmitted"), v.Summary.SubmittedCount},
	}
	if s := v.Summary.Scores; s != nil {
		rows = append(rows,
			[]any{i18n.T(ctx, "MaxScore"), s.Max},
			[]any{i18n.T(ctx, "MinScore"), s.Min},
			[]any{i18n.T(ctx, "MeanScore"), s.Mean},
		)
	}
	if err := writeRows(f, stats, rows); err != nil {
		return err
	}

	questions := i18n.T(ctx, "SheetQuestions")
	if _, err := f.NewSheet(questions); err != nil {
		return fmt.Errorf("create Excel sheet: %w", err)
	}
	analysis := make(map[int]string)
	for _, lq := range v.Summary.LowRateQuestions {
		analysis[lq.Number] = fieldText(lq.AnalysisPoint)
	}
	rows = [][]any{{
		i18n.T(ctx, "ColQuestion"), i18n.T(ctx, "ColAnswerRate"), i18n.T(ctx, "ColDifficulty"),
		i18n.T(ctx, "ColUnit"), i18n.T(ctx, "ColAnalysis"),
	}}
	for _, q := range v.Questions {
		rows = append(rows, []any{q.Number, q.Rate, i18n.T(ctx, difficultyMsg[q.Difficulty]), fieldText(q.Unit), analysis[q.Number]})
	}
	if err := writeRows(f, questions, rows); err != nil {
		return err
	}

	students := i18n.T(ctx, "SheetStudents")
	if _, err := f.NewSheet(students); err != nil {
		return fmt.Errorf("create Excel sheet: %w", err)
	}
	rows = [][]any{{i18n.T(ctx, "ColStudent"), i18n.T(ctx, "ColScore"), i18n.T(ctx, "ColCorrect")}}
	for _, s := range v.Students {
		var score any = i18n.T(ctx, "NotSubmitted")
		if s.Score != nil {
			score = *s.Score
		}
		rows = append(rows, []any{s.Name, score, s.CorrectCount})
	}
	if err := writeRows(f, students, rows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write Excel file: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

func fieldText(f Field[string]) string {
	if f.State == StateReady {
		return f.Value
	}
	return f.Message
}
