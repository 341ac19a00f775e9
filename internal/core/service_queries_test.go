package core

import (
	"communityconnect/pkg/domain"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventIDs(events []domain.Event) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

func orgIDs(orgs []domain.Organization) []string {
	ids := make([]string, 0, len(orgs))
	for _, o := range orgs {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestListEventsFilters(t *testing.T) {
	svc, _ := newFixtureService(t)

	assert.Equal(t, []string{"e2", "e1"}, eventIDs(svc.ListEvents(EventFilter{})))
	assert.Equal(t, []string{"e1"}, eventIDs(svc.ListEvents(EventFilter{Query: "HACK"})))
	assert.Equal(t, []string{"e2"}, eventIDs(svc.ListEvents(EventFilter{Query: "chess club"})))
	assert.Equal(t, []string{"e2"}, eventIDs(svc.ListEvents(EventFilter{Tags: []string{"games", "music"}})))
	assert.Equal(t, []string{"e1"}, eventIDs(svc.ListEvents(EventFilter{After: fixtureNow.Add(24 * time.Hour)})))
	assert.Empty(t, svc.ListEvents(EventFilter{Query: "nothing matches"}))
}

func TestListOrganizationsSortedByFollowers(t *testing.T) {
	svc, _ := newFixtureService(t)

	assert.Equal(t, []string{"rec", "acm", "chess"}, orgIDs(svc.ListOrganizations(OrganizationFilter{})))
	assert.Equal(t, []string{"rec"}, orgIDs(svc.ListOrganizations(OrganizationFilter{Kind: OrganizationKindUniversity})))
	assert.Equal(t, []string{"acm", "chess"}, orgIDs(svc.ListOrganizations(OrganizationFilter{Kind: OrganizationKindStudent})))
	assert.Equal(t, []string{"chess"}, orgIDs(svc.ListOrganizations(OrganizationFilter{Query: "weekly"})))
	assert.Equal(t, []string{"acm"}, orgIDs(svc.ListOrganizations(OrganizationFilter{Tags: []string{"tech"}, Kind: OrganizationKindAll})))
}

func TestSearchHidesBlockedUsers(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixtureService(t)

	res := svc.Search("chess")
	assert.Equal(t, []string{"e2"}, eventIDs(res.Events))
	assert.Equal(t, []string{"chess"}, orgIDs(res.Organizations))
	require.Len(t, res.Users, 1)
	assert.Equal(t, "u1", res.Users[0].ID)

	mustLogin(t, svc, "u2")
	_, _, err := svc.BlockUser(ctx, "u1")
	require.NoError(t, err)
	res = svc.Search("chess")
	assert.NotNil(t, res.Users)
	assert.Empty(t, res.Users)

	res = svc.Search("zzz")
	assert.NotNil(t, res.Events)
	assert.NotNil(t, res.Organizations)
	assert.Empty(t, res.Events)
}

func TestSearchMatchesTags(t *testing.T) {
	svc, _ := newFixtureService(t)
	res := svc.Search("sports")
	assert.Equal(t, []string{"rec"}, orgIDs(res.Organizations))
	assert.Empty(t, res.Events)
}

func TestDashboardTabs(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixtureService(t)

	_, err := svc.DashboardEvents(DashboardUpcoming)
	assert.ErrorIs(t, err, domain.ErrNoSession)

	mustLogin(t, svc, "u1")
	for _, id := range []string{"e1", "e2"} {
		_, _, err := svc.AttendEvent(ctx, id)
		require.NoError(t, err)
	}

	upcoming, err := svc.DashboardEvents("")
	require.NoError(t, err)
	assert.Equal(t, []string{"e2", "e1"}, eventIDs(upcoming))

	today, err := svc.DashboardEvents(DashboardToday)
	require.NoError(t, err)
	assert.Equal(t, []string{"e2"}, eventIDs(today))

	all, err := svc.DashboardEvents(DashboardAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.DashboardEvents("someday")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDashboardIncludesOrganizedEvents(t *testing.T) {
	svc, _ := newFixtureService(t)
	mustLogin(t, svc, "acm")
	events, err := svc.DashboardEvents(DashboardAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, eventIDs(events))
	assert.Equal(t, []string{"e1"}, eventIDs(svc.GetUserEvents("acm")))
}

func TestDiscoverEventsSkipsPast(t *testing.T) {
	svc, store := newFixtureService(t)
	snap := store.ExportState()
	snap.Events["old"] = domain.Event{Title: "Last Week", Date: fixtureNow.Add(-7 * 24 * time.Hour)}
	store.ImportState(snap)

	assert.Equal(t, []string{"e2", "e1"}, eventIDs(svc.DiscoverEvents(0)))
	assert.Equal(t, []string{"e2"}, eventIDs(svc.DiscoverEvents(1)))
}

func TestRecommendedOrganizations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixtureService(t)

	assert.Equal(t, []string{"rec", "acm", "chess"}, orgIDs(svc.RecommendedOrganizations(0)))
	assert.Equal(t, []string{"rec", "acm"}, orgIDs(svc.RecommendedOrganizations(2)))

	mustLogin(t, svc, "u1")
	_, _, err := svc.FollowOrganization(ctx, "rec")
	require.NoError(t, err)
	_, _, err = svc.MarkNotInterested(ctx, "chess")
	require.NoError(t, err)
	assert.Equal(t, []string{"acm"}, orgIDs(svc.RecommendedOrganizations(0)))

	mustLogin(t, svc, "acm")
	assert.Equal(t, []string{"rec", "chess"}, orgIDs(svc.RecommendedOrganizations(0)))
}

func TestMapEventsRequireCoordinates(t *testing.T) {
	svc, _ := newFixtureService(t)
	assert.Equal(t, []string{"e1"}, eventIDs(svc.MapEvents()))
}

func TestGetOrganizationEventsIgnoresEventsList(t *testing.T) {
	svc, _ := newFixtureService(t)
	org, _ := svc.GetOrganizationByID("chess")
	assert.Empty(t, org.Events)
	assert.Equal(t, []string{"e2"}, eventIDs(svc.GetOrganizationEvents("chess")))
	assert.Empty(t, svc.GetOrganizationEvents("rec"))
}
