// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by communityconnect.
package domain

import (
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityUser identifies a person or organization account.
	EntityUser EntityType = "user"
	// EntityOrganization identifies a student or university organization.
	EntityOrganization EntityType = "organization"
	// EntityEvent identifies a scheduled campus event.
	EntityEvent EntityType = "event"
	// EntitySession identifies the active-session pointer.
	EntitySession EntityType = "session"
)

// MemberRole ranks a member inside an organization roster.
type MemberRole string

// Roster roles, highest first.
const (
	RolePresident MemberRole = "president"
	RoleOfficer   MemberRole = "officer"
	RoleMember    MemberRole = "member"
)

// Valid reports whether r is one of the known roster roles.
func (r MemberRole) Valid() bool {
	switch r {
	case RolePresident, RoleOfficer, RoleMember:
		return true
	}
	return false
}

// JoinMode controls how new members are admitted to an organization.
type JoinMode string

// Supported join modes. Organizations default to JoinModeImmediate.
const (
	JoinModeImmediate JoinMode = "immediate"
	JoinModeForm      JoinMode = "form"
)

// ActivityType classifies an activity feed entry.
type ActivityType string

// Activity feed entry kinds.
const (
	ActivityEvent        ActivityType = "event"
	ActivityOrganization ActivityType = "organization"
)

// ThemeMode is the persisted UI theme preference.
type ThemeMode string

// Theme modes. ThemeLight is the default.
const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

// Valid reports whether m is a known theme.
func (m ThemeMode) Valid() bool {
	return m == ThemeLight || m == ThemeDark
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a person or organization account. Relationship fields hold ids of
// other records; dangling ids are tolerated and resolve to "not found".
type User struct {
	Base
	Name                  string               `json:"name"`
	Email                 string               `json:"email"`
	Password              string               `json:"password"`
	Avatar                string               `json:"avatar,omitempty"`
	Bio                   string               `json:"bio,omitempty"`
	Major                 string               `json:"major,omitempty"`
	GraduationYear        string               `json:"graduation_year,omitempty"`
	SocialLinks           SocialLinks          `json:"social_links"`
	Notifications         NotificationSettings `json:"notifications"`
	Privacy               PrivacySettings      `json:"privacy"`
	OrganizationsJoined   []string             `json:"organizations_joined"`
	OrganizationsFollowed []string             `json:"organizations_followed"`
	EventsAttending       []string             `json:"events_attending"`
	Following             []string             `json:"following"`
	Followers             []string             `json:"followers"`
	BlockedUsers          []string             `json:"blocked_users"`
	NotInterestedOrgs     []string             `json:"not_interested_orgs"`
	ActivityFeed          []ActivityItem       `json:"activity_feed"`
	IsOrganization        bool                 `json:"is_organization"`
}

// Member is one roster entry of an organization.
type Member struct {
	UserID string     `json:"user_id"`
	Role   MemberRole `json:"role"`
}

// Organization is a student or university organization. FollowerCount and
// MemberCount are denormalized counters kept in step with user relationship
// lists by the service layer.
type Organization struct {
	Base
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	Logo                  string   `json:"logo"`
	CoverImage            string   `json:"cover_image,omitempty"`
	Tags                  []string `json:"tags"`
	IsUniversitySponsored bool     `json:"is_university_sponsored"`
	JoinMode              JoinMode `json:"join_mode"`
	FollowerCount         int      `json:"follower_count"`
	MemberCount           int      `json:"member_count"`
	Events                []string `json:"events"`
	RelatedOrganizations  []string `json:"related_organizations"`
	Members               []Member `json:"members"`
}

// Coordinates locates an event on the map.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event is a scheduled campus event. OrganizerName is copied from the
// organizer at creation time and never re-synced. AttendanceCount is always
// len(Attendees).
type Event struct {
	Base
	Title           string       `json:"title"`
	OrganizerID     string       `json:"organizer_id"`
	OrganizerName   string       `json:"organizer_name"`
	Date            time.Time    `json:"date"`
	Location        string       `json:"location"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`
	Description     string       `json:"description,omitempty"`
	Tags            []string     `json:"tags"`
	Image           string       `json:"image,omitempty"`
	ExternalLink    string       `json:"external_link,omitempty"`
	CreatorType     string       `json:"creator_type,omitempty"`
	Attendees       []string     `json:"attendees"`
	AttendanceCount int          `json:"attendance_count"`
}

// ActivityItem is one entry of a user's activity feed. ID refers to the event
// or organization the activity concerns.
type ActivityItem struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	Name      string       `json:"name"`
	Timestamp time.Time    `json:"timestamp"`
}

// Session is the persisted active-session pointer. Only the id is stored; the
// user record is resolved from the Users collection on every read.
type Session struct {
	CurrentUserID string `json:"current_user_id,omitempty"`
}

// Outcome distinguishes an applied mutation from an idempotent no-op.
type Outcome string

// Mutation outcomes. Rejections are reported as errors.
const (
	OutcomeApplied   Outcome = "applied"
	OutcomeUnchanged Outcome = "unchanged"
)

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity,omitempty"`
	EntityID string     `json:"entity_id,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations of severity warn.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityWarn {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
