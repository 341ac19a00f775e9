package core

import (
	"communityconnect/pkg/domain"
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var propertyUsers = []string{"u1", "u2"}

// TestMembershipCounterProperty checks that any sequence of join and leave
// calls keeps the member counter and both sides of the relationship in step.
func TestMembershipCounterProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 60
	properties := gopter.NewProperties(parameters)

	properties.Property("member count tracks joins and leaves", prop.ForAll(
		func(ops []int) bool {
			ctx := context.Background()
			svc, _ := newFixtureService(t)
			for _, op := range ops {
				userID := propertyUsers[op&1]
				if _, err := svc.Login(ctx, userID); err != nil {
					return false
				}
				var err error
				if op&2 == 0 {
					_, _, err = svc.JoinOrganization(ctx, "chess")
				} else {
					_, _, err = svc.LeaveOrganization(ctx, "chess")
				}
				if err != nil {
					return false
				}
			}
			org, _ := svc.GetOrganizationByID("chess")
			joined := 0
			for _, id := range propertyUsers {
				u, _ := svc.GetUserByID(id)
				if org.HasMember(id) != domain.ContainsID(u.OrganizationsJoined, "chess") {
					return false
				}
				if org.HasMember(id) {
					joined++
				}
			}
			return org.MemberCount == 5+joined && org.MemberCount >= len(org.Members)
		},
		gen.SliceOf(gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}

// TestAttendanceProperty checks that attendance counts always equal the
// attendee list and mirror each user's attending list.
func TestAttendanceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 60
	properties := gopter.NewProperties(parameters)

	properties.Property("attendance count equals attendees", prop.ForAll(
		func(ops []int) bool {
			ctx := context.Background()
			svc, _ := newFixtureService(t)
			events := []string{"e1", "e2"}
			for _, op := range ops {
				if _, err := svc.Login(ctx, propertyUsers[op&1]); err != nil {
					return false
				}
				eventID := events[(op>>1)&1]
				var err error
				if op&4 == 0 {
					_, _, err = svc.AttendEvent(ctx, eventID)
				} else {
					_, _, err = svc.UnattendEvent(ctx, eventID)
				}
				if err != nil {
					return false
				}
			}
			for _, eventID := range events {
				e, _ := svc.GetEventByID(eventID)
				if e.AttendanceCount != len(e.Attendees) {
					return false
				}
				for _, userID := range propertyUsers {
					u, _ := svc.GetUserByID(userID)
					if e.IsAttending(userID) != domain.ContainsID(u.EventsAttending, eventID) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 7)),
	))

	properties.TestingRun(t)
}

// TestFollowIdempotenceProperty checks that repeating a follow never moves
// the follower count past one increment.
func TestFollowIdempotenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("follow is idempotent", prop.ForAll(
		func(repeats int) bool {
			ctx := context.Background()
			svc, _ := newFixtureService(t)
			if _, err := svc.Login(ctx, "u1"); err != nil {
				return false
			}
			for i := 0; i < repeats; i++ {
				if _, _, err := svc.FollowOrganization(ctx, "acm"); err != nil {
					return false
				}
			}
			org, _ := svc.GetOrganizationByID("acm")
			u, _ := svc.GetUserByID("u1")
			return org.FollowerCount == 41 && len(u.OrganizationsFollowed) == 1
		},
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}
