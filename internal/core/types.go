package core

import "tirecore/pkg/domain"

type (
	// EntityType aliases domain.EntityType.
	EntityType = domain.EntityType
	// Action aliases domain.Action.
	Action = domain.Action
	// Result aliases domain.Result.
	Result = domain.Result
	// Change aliases domain.Change.
	Change = domain.Change
	// Rule aliases domain.Rule.
	Rule = domain.Rule
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore.
	PersistentStore = domain.PersistentStore
)

// CombinationInput carries an addCombination request.
type CombinationInput struct {
	FrontCode string  `json:"front_code"`
	RearCode  string  `json:"rear_code"`
	Quantity  int     `json:"quantity"`
	Purpose   string  `json:"purpose"`
	Notes     *string `json:"notes,omitempty"`
}

// OrderInput carries an addOrder request. Empty strings select the defaults.
type OrderInput struct {
	CombinationID string `json:"combination_id"`
	Objective     string `json:"objective,omitempty"`
	Vehicle       string `json:"vehicle,omitempty"`
	Schedule      string `json:"schedule,omitempty"`
	Quantity      int    `json:"quantity"`
}
