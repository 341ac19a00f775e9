package core

import (
	"communityconnect/pkg/domain"
	"context"
	"fmt"
)

// NewOrganizationAccountMirrorRule warns when an organization account has no
// organization record sharing its id.
func NewOrganizationAccountMirrorRule() domain.Rule {
	return organizationAccountMirrorRule{}
}

type organizationAccountMirrorRule struct{}

func (organizationAccountMirrorRule) Name() string { return "organization_account_mirror" }

func (r organizationAccountMirrorRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, id := range changedIDs(changes, domain.EntityUser) {
		u, ok := view.FindUser(id)
		if !ok || !u.IsOrganization {
			continue
		}
		if _, ok := view.FindOrganization(u.ID); ok {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("organization account %s (%s) has no organization record", u.Name, u.ID),
			Entity:   domain.EntityUser,
			EntityID: u.ID,
		})
	}
	return res, nil
}
