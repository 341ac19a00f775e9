package core

import "communityconnect/pkg/domain"

// defaultRules lists the built-in rules in evaluation order.
func defaultRules() []domain.Rule {
	return []domain.Rule{
		NewAttendanceConsistencyRule(),
		NewMembershipCountersRule(),
		NewOrganizationAccountMirrorRule(),
	}
}

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	for _, rule := range defaultRules() {
		engine.Register(rule)
	}
	return engine
}
