package core

import (
	"communityconnect/pkg/domain"
	"context"
	"strings"
)

// GeocodeWarning is the advisory attached when an event is created without
// coordinates because its location could not be resolved.
const GeocodeWarning = "Could not find coordinates for the provided address. The event will be created but may not appear on the map."

func findEvent(tx domain.Transaction, eventID string) (domain.Event, error) {
	e, ok := tx.FindEvent(eventID)
	if !ok {
		return domain.Event{}, domain.ErrNotFound{Entity: domain.EntityEvent, ID: eventID}
	}
	return e, nil
}

// AttendEvent adds the session user to eventID's attendees.
func (s *Service) AttendEvent(ctx context.Context, eventID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "attend_event", eventID, func(tx domain.Transaction) error {
		user, err := sessionUser(tx)
		if err != nil {
			return err
		}
		event, err := findEvent(tx, eventID)
		if err != nil {
			return err
		}
		if event.IsAttending(user.ID) {
			return errNoChange
		}
		if _, err := tx.UpdateEvent(eventID, func(e *domain.Event) error {
			e.Attendees = append(e.Attendees, user.ID)
			return nil
		}); err != nil {
			return err
		}
		_, err = tx.UpdateUser(user.ID, func(u *domain.User) error {
			u.EventsAttending, _ = domain.AddID(u.EventsAttending, eventID)
			return nil
		})
		return err
	})
}

// UnattendEvent removes the session user from eventID's attendees.
func (s *Service) UnattendEvent(ctx context.Context, eventID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "unattend_event", eventID, func(tx domain.Transaction) error {
		user, err := sessionUser(tx)
		if err != nil {
			return err
		}
		event, err := findEvent(tx, eventID)
		if err != nil {
			return err
		}
		if !event.IsAttending(user.ID) && !domain.ContainsID(user.EventsAttending, eventID) {
			return errNoChange
		}
		if _, err := tx.UpdateEvent(eventID, func(e *domain.Event) error {
			e.Attendees, _ = domain.RemoveID(e.Attendees, user.ID)
			return nil
		}); err != nil {
			return err
		}
		_, err = tx.UpdateUser(user.ID, func(u *domain.User) error {
			u.EventsAttending, _ = domain.RemoveID(u.EventsAttending, eventID)
			return nil
		})
		return err
	})
}

// CreateEvent stores draft as a new event organized by the session user,
// which must be an organization account. Id, attendees and organizer fields
// of draft are ignored. When the draft has a location but no coordinates and
// a geocoder is configured, the location is resolved first; a failed lookup
// still creates the event and reports a geocoding warning in the result.
func (s *Service) CreateEvent(ctx context.Context, draft domain.Event) (domain.Event, domain.Result, error) {
	var created domain.Event
	out, err := s.observe(ctx, "create_event", func(ctx context.Context) (opResult, error) {
		if strings.TrimSpace(draft.Title) == "" {
			return opResult{}, domain.Invalid("event title is required")
		}
		if draft.Date.IsZero() {
			return opResult{}, domain.Invalid("event date is required")
		}
		organizer, ok := s.CurrentUser()
		if !ok {
			return opResult{}, domain.ErrNoSession
		}
		if !organizer.IsOrganization {
			return opResult{}, domain.ErrNotOrganization
		}

		var advisory domain.Result
		if draft.Coordinates == nil && strings.TrimSpace(draft.Location) != "" && s.geocoder != nil {
			if coords, gerr := s.lookup(ctx, draft.Location); gerr != nil {
				s.logger.Warn("geocoding failed", "location", draft.Location, "error", gerr.Error())
				advisory.Violations = append(advisory.Violations, domain.Violation{
					Rule:     "geocoding",
					Severity: domain.SeverityWarn,
					Message:  GeocodeWarning,
					Entity:   domain.EntityEvent,
				})
			} else {
				draft.Coordinates = &coords
			}
		}

		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			user, err := sessionUser(tx)
			if err != nil {
				return err
			}
			if !user.IsOrganization {
				return domain.ErrNotOrganization
			}
			event := draft
			event.ID = ""
			event.OrganizerID = user.ID
			event.OrganizerName = user.Name
			event.Attendees = []string{}
			event.AttendanceCount = 0
			if event.CreatorType == "" {
				event.CreatorType = string(domain.EntityOrganization)
			}
			org, hasOrg := tx.FindOrganization(user.ID)
			if hasOrg {
				event.OrganizerName = org.Name
			}
			created, err = tx.CreateEvent(event)
			if err != nil {
				return err
			}
			if !hasOrg {
				return nil
			}
			_, err = tx.UpdateOrganization(org.ID, func(o *domain.Organization) error {
				o.Events = append(o.Events, created.ID)
				return nil
			})
			return err
		})
		if err != nil {
			return opResult{result: res}, err
		}
		for i := range advisory.Violations {
			advisory.Violations[i].EntityID = created.ID
		}
		res.Merge(advisory)
		return opResult{entityID: created.ID, outcome: domain.OutcomeApplied, result: res}, nil
	})
	return created, out.result, err
}

func (s *Service) lookup(ctx context.Context, address string) (domain.Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, s.geocodeTimeout)
	defer cancel()
	return s.geocoder.Geocode(ctx, address)
}
