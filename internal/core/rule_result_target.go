package core

import (
	"context"
	"fmt"

	"tirecore/pkg/domain"
)

const resultTargetRuleName = "result_target"

// NewResultTargetRule blocks new results that target a missing or cancelled order.
// Results created earlier are never re-checked, so cancelling an order later
// does not retract them.
func NewResultTargetRule() Rule {
	return resultTargetRule{}
}

type resultTargetRule struct{}

func (resultTargetRule) Name() string { return resultTargetRuleName }

func (resultTargetRule) Evaluate(_ context.Context, view TransactionView, changes []Change) (Result, error) {
	var res Result
	for _, change := range changes {
		if change.Entity != domain.EntityResult || change.Action != domain.ActionCreate {
			continue
		}
		record, ok := domain.DecodeChangePayload[domain.ResultRecord](change.After)
		if !ok {
			continue
		}
		order, found := view.FindOrder(record.TestOrderID)
		var msg string
		switch {
		case !found:
			msg = fmt.Sprintf("result %s targets missing order %q", record.ID, record.TestOrderID)
		case !order.Active():
			msg = fmt.Sprintf("result %s targets cancelled order %s", record.ID, order.ID)
		default:
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     resultTargetRuleName,
			Severity: domain.SeverityBlock,
			Message:  msg,
			Entity:   domain.EntityResult,
			EntityID: record.ID,
		})
	}
	return res, nil
}
