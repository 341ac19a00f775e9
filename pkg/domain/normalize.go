package domain

// ContainsID reports whether id is present in ids.
func ContainsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// AddID appends id when absent and reports whether the set changed.
func AddID(ids []string, id string) ([]string, bool) {
	if ContainsID(ids, id) {
		return ids, false
	}
	return append(ids, id), true
}

// RemoveID removes every occurrence of id and reports whether the set changed.
func RemoveID(ids []string, id string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	removed := false
	for _, candidate := range ids {
		if candidate == id {
			removed = true
			continue
		}
		out = append(out, candidate)
	}
	return out, removed
}

// DedupeIDs drops empty and repeated ids, keeping first-seen order. The
// result is never nil.
func DedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// NormalizeUser applies the documented defaults and set semantics to u.
func NormalizeUser(u *User) {
	u.OrganizationsJoined = DedupeIDs(u.OrganizationsJoined)
	u.OrganizationsFollowed = DedupeIDs(u.OrganizationsFollowed)
	u.EventsAttending = DedupeIDs(u.EventsAttending)
	u.Following = DedupeIDs(u.Following)
	u.Followers = DedupeIDs(u.Followers)
	u.BlockedUsers = DedupeIDs(u.BlockedUsers)
	u.NotInterestedOrgs = DedupeIDs(u.NotInterestedOrgs)
	if u.ActivityFeed == nil {
		u.ActivityFeed = []ActivityItem{}
	}
}

// NormalizeOrganization floors counters at zero, dedupes the roster and keeps
// MemberCount at least as large as the roster.
func NormalizeOrganization(o *Organization) {
	if o.JoinMode == "" {
		o.JoinMode = JoinModeImmediate
	}
	o.Tags = nonNilStrings(o.Tags)
	o.Events = DedupeIDs(o.Events)
	o.RelatedOrganizations = DedupeIDs(o.RelatedOrganizations)

	members := make([]Member, 0, len(o.Members))
	seen := make(map[string]struct{}, len(o.Members))
	for _, m := range o.Members {
		if m.UserID == "" {
			continue
		}
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		if !m.Role.Valid() {
			m.Role = RoleMember
		}
		members = append(members, m)
	}
	o.Members = members

	if o.FollowerCount < 0 {
		o.FollowerCount = 0
	}
	if o.MemberCount < len(o.Members) {
		o.MemberCount = len(o.Members)
	}
}

// NormalizeEvent dedupes attendees and derives AttendanceCount from them.
func NormalizeEvent(e *Event) {
	e.Tags = nonNilStrings(e.Tags)
	e.Attendees = DedupeIDs(e.Attendees)
	e.AttendanceCount = len(e.Attendees)
}

// HasMember reports whether userID is on the roster of o.
func (o Organization) HasMember(userID string) bool {
	for _, m := range o.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// RemoveMember drops userID from the roster and reports whether it was present.
func (o *Organization) RemoveMember(userID string) bool {
	out := make([]Member, 0, len(o.Members))
	removed := false
	for _, m := range o.Members {
		if m.UserID == userID {
			removed = true
			continue
		}
		out = append(out, m)
	}
	o.Members = out
	return removed
}

// RoleOf returns the roster role of userID.
func (o Organization) RoleOf(userID string) (MemberRole, bool) {
	for _, m := range o.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// IsAttending reports whether userID is on the attendee list.
func (e Event) IsAttending(userID string) bool {
	return ContainsID(e.Attendees, userID)
}
