package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sales-insights-go/internal/store"
)

const sheetName = "Analyses"

var headers = []string{
	"ID", "Title", "Call Type", "Total Score",
	"Clarity and Fluency", "Tone and Control", "Conversational Engagement",
	"Needs Discovery Effectiveness", "Value Delivery and Fit", "Objection Handling",
	"Meeting Structure and Control", "Closing and Next Steps",
	"Tokens Used", "Created At",
}

// Workbook renders analyses as an xlsx spreadsheet, one row per
// analysis with the score breakdown in columns.
func Workbook(records []store.AnalysisRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, rec := range records {
		s := rec.Analysis.Scores
		values := []any{
			rec.ID, rec.Title, rec.CallType, rec.TotalScore,
			s.ClarityFluency, s.ToneControl, s.ConversationalEngagement,
			s.NeedsDiscoveryEffectiveness, s.ValueDeliveryFit, s.ObjectionHandlingSkill,
			s.MeetingStructureControl, s.ClosingNextSteps,
			rec.TokensUsed, rec.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}
	return f, nil
}

// Write streams the workbook for a set of analyses.
func Write(w io.Writer, records []store.AnalysisRecord) error {
	f, err := Workbook(records)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
