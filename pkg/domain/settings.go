package domain

import (
	"encoding/json"
)

// SocialLinks holds optional profile links.
type SocialLinks struct {
	Website   string `json:"website,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	GitHub    string `json:"github,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// NotificationSettings holds delivery preferences. Email defaults to on and
// push to off.
type NotificationSettings struct {
	EmailNotifications bool `json:"email_notifications"`
	PushNotifications  bool `json:"push_notifications"`
}

// PrivacySettings controls profile visibility. Every flag defaults to visible.
type PrivacySettings struct {
	ProfileVisible          bool `json:"profile_visible"`
	ShowOrganizationsJoined bool `json:"show_organizations_joined"`
	ShowEventsAttending     bool `json:"show_events_attending"`
}

// DefaultNotificationSettings returns the settings applied when none are stored.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{EmailNotifications: true}
}

// DefaultPrivacySettings returns the settings applied when none are stored.
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{ProfileVisible: true, ShowOrganizationsJoined: true, ShowEventsAttending: true}
}

// UnmarshalJSON applies defaults for flags missing from the payload.
func (n *NotificationSettings) UnmarshalJSON(data []byte) error {
	var aux struct {
		EmailNotifications *bool `json:"email_notifications"`
		PushNotifications  *bool `json:"push_notifications"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*n = DefaultNotificationSettings()
	if aux.EmailNotifications != nil {
		n.EmailNotifications = *aux.EmailNotifications
	}
	if aux.PushNotifications != nil {
		n.PushNotifications = *aux.PushNotifications
	}
	return nil
}

// UnmarshalJSON applies defaults for flags missing from the payload.
func (p *PrivacySettings) UnmarshalJSON(data []byte) error {
	var aux struct {
		ProfileVisible          *bool `json:"profile_visible"`
		ShowOrganizationsJoined *bool `json:"show_organizations_joined"`
		ShowEventsAttending     *bool `json:"show_events_attending"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = DefaultPrivacySettings()
	if aux.ProfileVisible != nil {
		p.ProfileVisible = *aux.ProfileVisible
	}
	if aux.ShowOrganizationsJoined != nil {
		p.ShowOrganizationsJoined = *aux.ShowOrganizationsJoined
	}
	if aux.ShowEventsAttending != nil {
		p.ShowEventsAttending = *aux.ShowEventsAttending
	}
	return nil
}

// UnmarshalJSON decodes a user, defaulting settings blocks that are absent.
func (u *User) UnmarshalJSON(data []byte) error {
	type userAlias User
	aux := userAlias{
		Notifications: DefaultNotificationSettings(),
		Privacy:       DefaultPrivacySettings(),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux)
	return nil
}
