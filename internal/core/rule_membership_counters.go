package core

import (
	"communityconnect/pkg/domain"
	"context"
	"fmt"
)

// NewMembershipCountersRule blocks negative organization counters and member
// counts below the roster size.
func NewMembershipCountersRule() domain.Rule {
	return membershipCountersRule{}
}

type membershipCountersRule struct{}

func (membershipCountersRule) Name() string { return "membership_counters" }

func (r membershipCountersRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(org domain.Organization, msg string) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  msg,
			Entity:   domain.EntityOrganization,
			EntityID: org.ID,
		})
	}
	for _, id := range changedIDs(changes, domain.EntityOrganization) {
		org, ok := view.FindOrganization(id)
		if !ok {
			continue
		}
		if org.MemberCount < 0 {
			block(org, fmt.Sprintf("organization %s has negative member count %d", org.ID, org.MemberCount))
		}
		if org.FollowerCount < 0 {
			block(org, fmt.Sprintf("organization %s has negative follower count %d", org.ID, org.FollowerCount))
		}
		if org.MemberCount < len(org.Members) {
			block(org, fmt.Sprintf("organization %s member count %d below roster size %d", org.ID, org.MemberCount, len(org.Members)))
		}
	}
	return res, nil
}
