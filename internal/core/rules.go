package core

import "tirecore/pkg/domain"

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in ledger policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewCombinationReferenceRule())
	engine.Register(NewResultTargetRule())
	engine.Register(NewOrderLifecycleRule())
	engine.Register(NewSheetCardinalityRule())
	return engine
}

// changedOrders decodes the after-state of every order change in a transaction.
func changedOrders(changes []Change) []domain.TestOrder {
	var out []domain.TestOrder
	for _, change := range changes {
		if change.Entity != domain.EntityTestOrder || change.Action == domain.ActionMove {
			continue
		}
		if order, ok := domain.DecodeChangePayload[domain.TestOrder](change.After); ok {
			out = append(out, order)
		}
	}
	return out
}
