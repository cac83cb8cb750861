package core

import (
	"context"
	"fmt"

	"tirecore/pkg/domain"
)

const combinationReferenceRuleName = "combination_reference"

// NewCombinationReferenceRule blocks orders whose combination does not resolve.
func NewCombinationReferenceRule() Rule {
	return combinationReferenceRule{}
}

type combinationReferenceRule struct{}

func (combinationReferenceRule) Name() string { return combinationReferenceRuleName }

func (combinationReferenceRule) Evaluate(_ context.Context, view TransactionView, changes []Change) (Result, error) {
	var res Result
	for _, order := range changedOrders(changes) {
		if _, ok := view.FindCombination(order.CombinationID); ok {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     combinationReferenceRuleName,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("order %s references missing combination %q", order.ID, order.CombinationID),
			Entity:   domain.EntityTestOrder,
			EntityID: order.ID,
		})
	}
	return res, nil
}
