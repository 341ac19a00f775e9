package core

import (
	"communityconnect/pkg/domain"
	"context"
	"fmt"
)

// NewAttendanceConsistencyRule blocks commits that leave an event's
// attendance count out of step with its attendee list.
func NewAttendanceConsistencyRule() domain.Rule {
	return attendanceConsistencyRule{}
}

type attendanceConsistencyRule struct{}

func (attendanceConsistencyRule) Name() string { return "attendance_consistency" }

func (r attendanceConsistencyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, id := range changedIDs(changes, domain.EntityEvent) {
		event, ok := view.FindEvent(id)
		if !ok {
			continue
		}
		if event.AttendanceCount != len(event.Attendees) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("event %s attendance count %d does not match %d attendees", event.ID, event.AttendanceCount, len(event.Attendees)),
				Entity:   domain.EntityEvent,
				EntityID: event.ID,
			})
		}
		if len(domain.DedupeIDs(event.Attendees)) != len(event.Attendees) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("event %s lists an attendee more than once", event.ID),
				Entity:   domain.EntityEvent,
				EntityID: event.ID,
			})
		}
	}
	return res, nil
}

// changedIDs returns the ids of entity records touched in changes, in first
// touch order.
func changedIDs(changes []domain.Change, entity domain.EntityType) []string {
	var ids []string
	for _, c := range changes {
		if c.Entity != entity {
			continue
		}
		var id string
		switch v := c.After.(type) {
		case domain.User:
			id = v.ID
		case domain.Organization:
			id = v.ID
		case domain.Event:
			id = v.ID
		}
		if id != "" {
			ids, _ = domain.AddID(ids, id)
		}
	}
	return ids
}
