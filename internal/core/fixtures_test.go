package core

import (
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/pkg/domain"
	"testing"
	"time"
)

var fixtureNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// fixtureSnapshot seeds two students, one organization account with its
// mirrored organization, a student club and two events.
func fixtureSnapshot() memory.Snapshot {
	return memory.Snapshot{
		Users: map[string]domain.User{
			"u1": {Name: "Ana Student", Email: "ana@campus.edu", Password: "pw-ana", Bio: "Chess and film"},
			"u2": {Name: "Ben Student", Email: "ben@campus.edu", Password: "pw-ben"},
			"acm": {Name: "ACM Chapter", Email: "acm@campus.edu", Password: "pw-acm", IsOrganization: true},
		},
		Organizations: map[string]domain.Organization{
			"acm": {
				Name:          "ACM Chapter",
				Description:   "Computing society",
				Tags:          []string{"tech"},
				FollowerCount: 40,
				MemberCount:   1,
				Members:       []domain.Member{{UserID: "acm", Role: domain.RolePresident}},
			},
			"chess": {
				Name:          "Chess Club",
				Description:   "Weekly games",
				Tags:          []string{"games"},
				FollowerCount: 12,
				MemberCount:   5,
				Members:       []domain.Member{{UserID: "x1", Role: domain.RolePresident}, {UserID: "x2", Role: domain.RoleOfficer}},
			},
			"rec": {
				Name:                  "Campus Recreation",
				Description:           "University sports",
				Tags:                  []string{"sports"},
				IsUniversitySponsored: true,
				FollowerCount:         300,
			},
		},
		Events: map[string]domain.Event{
			"e1": {
				Title:         "Hack Night",
				OrganizerID:   "acm",
				OrganizerName: "ACM Chapter",
				Date:          fixtureNow.Add(48 * time.Hour),
				Location:      "Siebel Center",
				Tags:          []string{"tech"},
				Coordinates:   &domain.Coordinates{Lat: 40.1138, Lng: -88.2249},
			},
			"e2": {
				Title:         "Blitz Tournament",
				OrganizerID:   "chess",
				OrganizerName: "Chess Club",
				Date:          fixtureNow.Add(2 * time.Hour),
				Location:      "Union Room 210",
				Tags:          []string{"games"},
			},
		},
	}
}

func newFixtureService(t *testing.T, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore(NewDefaultRulesEngine())
	store.ImportState(fixtureSnapshot())
	opts = append([]Option{WithClock(ClockFunc(func() time.Time { return fixtureNow }))}, opts...)
	return NewService(store, opts...), store
}

func mustLogin(t *testing.T, svc *Service, id string) {
	t.Helper()
	if _, err := svc.Login(t.Context(), id); err != nil {
		t.Fatalf("login %s: %v", id, err)
	}
}
