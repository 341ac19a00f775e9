package core

import (
	"communityconnect/pkg/domain"
	"sort"
	"strings"
	"time"
)

// GetUserByID returns the user with id.
func (s *Service) GetUserByID(id string) (domain.User, bool) { return s.store.GetUser(id) }

// GetOrganizationByID returns the organization with id.
func (s *Service) GetOrganizationByID(id string) (domain.Organization, bool) {
	return s.store.GetOrganization(id)
}

// GetEventByID returns the event with id.
func (s *Service) GetEventByID(id string) (domain.Event, bool) { return s.store.GetEvent(id) }

// ListUsers returns every user ordered by id.
func (s *Service) ListUsers() []domain.User { return s.store.ListUsers() }

// GetUserEvents returns the events userID attends or organizes, in date order.
func (s *Service) GetUserEvents(userID string) []domain.Event {
	var out []domain.Event
	for _, e := range s.store.ListEvents() {
		if e.OrganizerID == userID || e.IsAttending(userID) {
			out = append(out, e)
		}
	}
	return out
}

// GetOrganizationEvents returns the events organized by orgID. The
// organization's own Events list is advisory and not consulted.
func (s *Service) GetOrganizationEvents(orgID string) []domain.Event {
	var out []domain.Event
	for _, e := range s.store.ListEvents() {
		if e.OrganizerID == orgID {
			out = append(out, e)
		}
	}
	return out
}

// EventFilter narrows ListEvents. Zero fields match everything.
type EventFilter struct {
	Query string
	Tags  []string
	After time.Time
}

// ListEvents returns matching events in date order. Query matches title,
// description and organizer name; any one of Tags must be present.
func (s *Service) ListEvents(filter EventFilter) []domain.Event {
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	var out []domain.Event
	for _, e := range s.store.ListEvents() {
		if q != "" && !containsAny(q, e.Title, e.Description, e.OrganizerName) {
			continue
		}
		if !hasAnyTag(e.Tags, filter.Tags) {
			continue
		}
		if !filter.After.IsZero() && !e.Date.After(filter.After) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// OrganizationKind separates university-sponsored from student organizations.
type OrganizationKind string

// Organization kinds accepted by OrganizationFilter.
const (
	OrganizationKindAll        OrganizationKind = "all"
	OrganizationKindUniversity OrganizationKind = "university"
	OrganizationKindStudent    OrganizationKind = "student"
)

// OrganizationFilter narrows ListOrganizations.
type OrganizationFilter struct {
	Query string
	Tags  []string
	Kind  OrganizationKind
}

// ListOrganizations returns matching organizations, most followed first.
func (s *Service) ListOrganizations(filter OrganizationFilter) []domain.Organization {
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	var out []domain.Organization
	for _, o := range s.store.ListOrganizations() {
		if q != "" && !containsAny(q, o.Name, o.Description) {
			continue
		}
		if !hasAnyTag(o.Tags, filter.Tags) {
			continue
		}
		switch filter.Kind {
		case OrganizationKindUniversity:
			if !o.IsUniversitySponsored {
				continue
			}
		case OrganizationKindStudent:
			if o.IsUniversitySponsored {
				continue
			}
		}
		out = append(out, o)
	}
	sortByFollowers(out)
	return out
}

// SearchResults groups the matches of Search.
type SearchResults struct {
	Events        []domain.Event        `json:"events"`
	Organizations []domain.Organization `json:"organizations"`
	Users         []domain.User         `json:"users"`
}

// Search matches query case-insensitively against events (title,
// description, organizer, tags), organizations (name, description, tags)
// and users (name, bio). Users blocked by the session user are left out.
func (s *Service) Search(query string) SearchResults {
	q := strings.ToLower(strings.TrimSpace(query))
	results := SearchResults{
		Events:        []domain.Event{},
		Organizations: []domain.Organization{},
		Users:         []domain.User{},
	}
	for _, e := range s.store.ListEvents() {
		if containsAny(q, append([]string{e.Title, e.Description, e.OrganizerName}, e.Tags...)...) {
			results.Events = append(results.Events, e)
		}
	}
	for _, o := range s.store.ListOrganizations() {
		if containsAny(q, append([]string{o.Name, o.Description}, o.Tags...)...) {
			results.Organizations = append(results.Organizations, o)
		}
	}
	var blocked []string
	if current, ok := s.CurrentUser(); ok {
		blocked = current.BlockedUsers
	}
	for _, u := range s.store.ListUsers() {
		if domain.ContainsID(blocked, u.ID) {
			continue
		}
		if containsAny(q, u.Name, u.Bio) {
			results.Users = append(results.Users, u)
		}
	}
	return results
}

// DashboardTab selects the session user's events on the dashboard.
type DashboardTab string

// Dashboard tabs.
const (
	DashboardUpcoming DashboardTab = "upcoming"
	DashboardToday    DashboardTab = "today"
	DashboardAll      DashboardTab = "all"
)

// DashboardEvents returns the session user's events for tab in date order.
// "today" uses the calendar day of the service clock.
func (s *Service) DashboardEvents(tab DashboardTab) ([]domain.Event, error) {
	current, ok := s.CurrentUser()
	if !ok {
		return nil, domain.ErrNoSession
	}
	now := s.now()
	var out []domain.Event
	for _, e := range s.GetUserEvents(current.ID) {
		switch tab {
		case DashboardToday:
			if !sameDay(e.Date.In(now.Location()), now) {
				continue
			}
		case DashboardAll:
		case DashboardUpcoming, "":
			if !e.Date.After(now) {
				continue
			}
		default:
			return nil, domain.Invalid("unknown dashboard tab %q", tab)
		}
		out = append(out, e)
	}
	return out, nil
}

const defaultDiscoverLimit = 3

// DiscoverEvents returns up to limit upcoming events in date order.
func (s *Service) DiscoverEvents(limit int) []domain.Event {
	if limit <= 0 {
		limit = defaultDiscoverLimit
	}
	now := s.now()
	var out []domain.Event
	for _, e := range s.store.ListEvents() {
		if len(out) == limit {
			break
		}
		if e.Date.After(now) {
			out = append(out, e)
		}
	}
	return out
}

// RecommendedOrganizations returns up to limit organizations the session
// user has not joined, followed or dismissed, most followed first.
func (s *Service) RecommendedOrganizations(limit int) []domain.Organization {
	if limit <= 0 {
		limit = defaultDiscoverLimit
	}
	current, hasSession := s.CurrentUser()
	var out []domain.Organization
	for _, o := range s.store.ListOrganizations() {
		if hasSession {
			if o.ID == current.ID ||
				isMember(o, current) ||
				domain.ContainsID(current.OrganizationsFollowed, o.ID) ||
				domain.ContainsID(current.NotInterestedOrgs, o.ID) {
				continue
			}
		}
		out = append(out, o)
	}
	sortByFollowers(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MapEvents returns the events that have coordinates.
func (s *Service) MapEvents() []domain.Event {
	var out []domain.Event
	for _, e := range s.store.ListEvents() {
		if e.Coordinates != nil {
			out = append(out, e)
		}
	}
	return out
}

func containsAny(q string, fields ...string) bool {
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func hasAnyTag(tags, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		if domain.ContainsID(tags, w) {
			return true
		}
	}
	return false
}

func sortByFollowers(orgs []domain.Organization) {
	sort.SliceStable(orgs, func(i, j int) bool {
		return orgs[i].FollowerCount > orgs[j].FollowerCount
	})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
