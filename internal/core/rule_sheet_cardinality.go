package core

import (
	"context"
	"fmt"

	"tirecore/pkg/domain"
)

const sheetCardinalityRuleName = "sheet_cardinality"

// NewSheetCardinalityRule warns when an order carries more than one sheet.
// The sheet is still committed.
func NewSheetCardinalityRule() Rule {
	return sheetCardinalityRule{}
}

type sheetCardinalityRule struct{}

func (sheetCardinalityRule) Name() string { return sheetCardinalityRuleName }

func (sheetCardinalityRule) Evaluate(_ context.Context, view TransactionView, changes []Change) (Result, error) {
	var res Result
	for _, change := range changes {
		if change.Entity != domain.EntityEvaluationSheet || change.Action != domain.ActionCreate {
			continue
		}
		sheet, ok := domain.DecodeChangePayload[domain.EvaluationSheet](change.After)
		if !ok {
			continue
		}
		if n := len(view.SheetsForOrder(sheet.TestOrderID)); n > 1 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     sheetCardinalityRuleName,
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("order %s now has %d evaluation sheets", sheet.TestOrderID, n),
				Entity:   domain.EntityEvaluationSheet,
				EntityID: sheet.ID,
			})
		}
	}
	return res, nil
}
