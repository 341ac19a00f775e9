package core

import (
	"communityconnect/pkg/domain"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubView struct {
	users  map[string]domain.User
	orgs   map[string]domain.Organization
	events map[string]domain.Event
}

func (v stubView) ListUsers() []domain.User                 { return nil }
func (v stubView) ListOrganizations() []domain.Organization { return nil }
func (v stubView) ListEvents() []domain.Event               { return nil }

func (v stubView) FindUser(id string) (domain.User, bool) {
	u, ok := v.users[id]
	return u, ok
}

func (v stubView) FindOrganization(id string) (domain.Organization, bool) {
	o, ok := v.orgs[id]
	return o, ok
}

func (v stubView) FindEvent(id string) (domain.Event, bool) {
	e, ok := v.events[id]
	return e, ok
}

func TestDefaultRulesEngineOrder(t *testing.T) {
	var names []string
	for _, r := range NewDefaultRulesEngine().Rules() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"attendance_consistency", "membership_counters", "organization_account_mirror"}, names)
}

func TestAttendanceConsistencyRule(t *testing.T) {
	bad := domain.Event{Base: domain.Base{ID: "e1"}, Attendees: []string{"u1", "u1"}, AttendanceCount: 3}
	good := domain.Event{Base: domain.Base{ID: "e2"}, Attendees: []string{"u1"}, AttendanceCount: 1}
	view := stubView{events: map[string]domain.Event{"e1": bad, "e2": good}}
	changes := []domain.Change{
		{Entity: domain.EntityEvent, Action: domain.ActionUpdate, After: bad},
		{Entity: domain.EntityEvent, Action: domain.ActionUpdate, After: good},
	}
	res, err := NewAttendanceConsistencyRule().Evaluate(context.Background(), view, changes)
	require.NoError(t, err)
	require.Len(t, res.Violations, 2)
	assert.True(t, res.HasBlocking())
	for _, v := range res.Violations {
		assert.Equal(t, "e1", v.EntityID)
	}

	// untouched records are not evaluated
	res, err = NewAttendanceConsistencyRule().Evaluate(context.Background(), view, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Violations)
}

func TestMembershipCountersRule(t *testing.T) {
	org := domain.Organization{
		Base:          domain.Base{ID: "o1"},
		MemberCount:   -1,
		FollowerCount: -2,
		Members:       []domain.Member{{UserID: "u1", Role: domain.RoleMember}},
	}
	view := stubView{orgs: map[string]domain.Organization{"o1": org}}
	res, err := NewMembershipCountersRule().Evaluate(context.Background(), view, []domain.Change{
		{Entity: domain.EntityOrganization, Action: domain.ActionUpdate, After: org},
	})
	require.NoError(t, err)
	assert.Len(t, res.Violations, 3)
	assert.True(t, res.HasBlocking())
}

func TestOrganizationAccountMirrorRule(t *testing.T) {
	orphan := domain.User{Base: domain.Base{ID: "o9"}, Name: "Orphan Org", IsOrganization: true}
	student := domain.User{Base: domain.Base{ID: "u1"}}
	view := stubView{users: map[string]domain.User{"o9": orphan, "u1": student}}
	res, err := NewOrganizationAccountMirrorRule().Evaluate(context.Background(), view, []domain.Change{
		{Entity: domain.EntityUser, Action: domain.ActionCreate, After: orphan},
		{Entity: domain.EntityUser, Action: domain.ActionUpdate, After: student},
	})
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, domain.SeverityWarn, res.Violations[0].Severity)
	assert.False(t, res.HasBlocking())
}

func TestChangedIDsDedupes(t *testing.T) {
	u := domain.User{Base: domain.Base{ID: "u1"}}
	ids := changedIDs([]domain.Change{
		{Entity: domain.EntityUser, After: u},
		{Entity: domain.EntitySession, After: domain.Session{CurrentUserID: "u1"}},
		{Entity: domain.EntityUser, After: u},
	}, domain.EntityUser)
	assert.Equal(t, []string{"u1"}, ids)
}
