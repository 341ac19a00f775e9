// Package seed provides the initial campus dataset used when storage holds
// no state, either built in or loaded from a JSON or YAML file.
package seed

import (
	"bytes"
	"communityconnect/internal/infra/persistence/memory"
	"communityconnect/pkg/domain"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Format names a seed file encoding.
type Format string

// Supported seed file formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DefaultPassword is the plaintext password of every built-in account.
const DefaultPassword = "password"

// Default returns the built-in dataset. Event dates are placed relative to
// now so the dashboard always has upcoming entries.
func Default(now time.Time) memory.Snapshot {
	day := now.UTC().Truncate(time.Hour)
	at := func(days, hour int) time.Time {
		d := day.AddDate(0, 0, days)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
	}
	coords := func(lat, lng float64) *domain.Coordinates { return &domain.Coordinates{Lat: lat, Lng: lng} }

	return memory.Snapshot{
		Users: map[string]domain.User{
			"user1": {
				Name:                  "Cheeto",
				Email:                 "cheeto@ucdavis.edu",
				Password:              DefaultPassword,
				Bio:                   "Computer Science major, mice enthusiast",
				Major:                 "Computer Science",
				Notifications:         domain.DefaultNotificationSettings(),
				Privacy:               domain.DefaultPrivacySettings(),
				OrganizationsJoined:   []string{"org1", "org3"},
				OrganizationsFollowed: []string{"org2", "org4"},
				EventsAttending:       []string{"event1", "event3"},
				Following:             []string{"user2"},
				Followers:             []string{"user2"},
			},
			"user2": {
				Name:                  "Gunrock",
				Email:                 "gunrock@ucdavis.edu",
				Password:              DefaultPassword,
				Bio:                   "Veterinary major",
				Major:                 "Veterinary Medicine",
				Notifications:         domain.DefaultNotificationSettings(),
				Privacy:               domain.DefaultPrivacySettings(),
				OrganizationsJoined:   []string{"org2"},
				OrganizationsFollowed: []string{"org1", "org3"},
				EventsAttending:       []string{"event1", "event2", "event5"},
				Following:             []string{"user1"},
				Followers:             []string{"user1"},
			},
			"org1": {
				Name:           "Arbor Analytics Club",
				Email:          "analytics@ucdavis.edu",
				Password:       DefaultPassword,
				Bio:            "A community for computing and finance enthusiasts to collaborate and learn together",
				IsOrganization: true,
				Notifications:  domain.DefaultNotificationSettings(),
				Privacy:        domain.DefaultPrivacySettings(),
			},
		},
		Organizations: map[string]domain.Organization{
			"org1": {
				Name:                 "Arbor Analytics Club",
				Description:          "A community for computing and finance enthusiasts to collaborate and learn together",
				Tags:                 []string{"Technology", "Programming", "Academic"},
				FollowerCount:        245,
				MemberCount:          15,
				Events:               []string{"event1", "event3"},
				RelatedOrganizations: []string{"org3", "org5"},
				Members: []domain.Member{
					{UserID: "org1", Role: domain.RolePresident},
					{UserID: "user1", Role: domain.RoleOfficer},
				},
			},
			"org2": {
				Name:                  "ASUCD",
				Description:           "Associated Students, University of California, Davis",
				Tags:                  []string{"Leadership", "Governance", "University"},
				IsUniversitySponsored: true,
				FollowerCount:         512,
				MemberCount:           65,
				Events:                []string{"event2"},
				RelatedOrganizations:  []string{"org4"},
				Members:               []domain.Member{{UserID: "user2", Role: domain.RoleMember}},
			},
			"org3": {
				Name:                 "AvenueE",
				Description:          "Roadmap to your career in Engineering and Computer Science",
				Tags:                 []string{"Technology", "Engineering", "Robotics"},
				FollowerCount:        187,
				MemberCount:          140,
				Events:               []string{"event4"},
				RelatedOrganizations: []string{"org1", "org5"},
				Members:              []domain.Member{{UserID: "user1", Role: domain.RoleMember}},
			},
			"org4": {
				Name:                  "UC Davis Athletics",
				Description:           "Official Athletics Department of UC Davis",
				Tags:                  []string{"Sports", "Fitness", "University"},
				IsUniversitySponsored: true,
				FollowerCount:         876,
				MemberCount:           320,
				Events:                []string{"event5"},
				RelatedOrganizations:  []string{"org2"},
			},
			"org5": {
				Name:                 "AI Research Group",
				Description:          "Exploring the frontiers of artificial intelligence",
				Tags:                 []string{"Technology", "AI", "Research", "Academic"},
				FollowerCount:        156,
				MemberCount:          28,
				RelatedOrganizations: []string{"org1", "org3"},
				JoinMode:             domain.JoinModeForm,
			},
		},
		Events: map[string]domain.Event{
			"event1": {
				Title:         "SacHacks VI",
				OrganizerID:   "org1",
				OrganizerName: "Arbor Analytics Club",
				Date:          at(0, 18),
				Location:      "TLC 1020",
				Coordinates:   coords(38.5389, -121.7542),
				Description:   "24-hour coding challenge to build innovative solutions. Prizes for top teams!",
				Tags:          []string{"Hackathon", "Programming", "Competition"},
				ExternalLink:  "https://sachacks.io/",
				CreatorType:   string(domain.EntityOrganization),
				Attendees:     []string{"user1", "user2"},
			},
			"event2": {
				Title:         "ASUCD Town Hall",
				OrganizerID:   "org2",
				OrganizerName: "ASUCD",
				Date:          at(2, 19),
				Location:      "Wellman Hall 2",
				Coordinates:   coords(38.5417, -121.7513),
				Description:   "Open meeting with student government.",
				Tags:          []string{"Meeting", "Discussion", "Campus"},
				CreatorType:   string(domain.EntityOrganization),
				Attendees:     []string{"user2"},
			},
			"event3": {
				Title:         "Volleyball Game",
				OrganizerID:   "org1",
				OrganizerName: "Arbor Analytics Club",
				Date:          at(4, 18),
				Location:      "Beach Volleyball Courts",
				Coordinates:   coords(38.5450, -121.7495),
				Description:   "Come play volleyball with us!",
				Tags:          []string{"Sport", "Volleyball", "Game"},
				CreatorType:   string(domain.EntityOrganization),
				Attendees:     []string{"user1"},
			},
			"event4": {
				Title:         "Exploring Old Sacramento",
				OrganizerID:   "org3",
				OrganizerName: "AvenueE",
				Date:          at(9, 10),
				Location:      "Old Sacramento Waterfront",
				Description:   "Come with us on a tour of Old Sacramento!",
				Tags:          []string{"Visit", "Exploring", "Food"},
				CreatorType:   string(domain.EntityOrganization),
			},
			"event5": {
				Title:         "Games Night",
				OrganizerID:   "org4",
				OrganizerName: "UC Davis Athletics",
				Date:          at(-3, 19),
				Location:      "Games Area at the MU",
				Coordinates:   coords(38.5428, -121.7492),
				Description:   "Bowling and pizza at the MU.",
				Tags:          []string{"Sports", "Game", "Food"},
				CreatorType:   string(domain.EntityOrganization),
				Attendees:     []string{"user2"},
			},
		},
		Theme: domain.ThemeLight,
	}
}

// LoadFile reads a seed snapshot from path. The format follows the file
// extension: .yaml and .yml are YAML, anything else is JSON.
func LoadFile(path string) (memory.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("open seed: %w", err)
	}
	defer func() { _ = f.Close() }()
	snap, err := Load(f, FormatForPath(path))
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("seed %s: %w", path, err)
	}
	return snap, nil
}

// FormatForPath picks the format of a seed file from its extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load decodes a snapshot in the persisted JSON layout. YAML documents use
// the same field names.
func Load(r io.Reader, format Format) (memory.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return memory.Snapshot{}, err
	}
	if format == FormatYAML {
		// domain types carry json tags only; round-trip through JSON so
		// both formats share one field naming.
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return memory.Snapshot{}, fmt.Errorf("parse yaml: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return memory.Snapshot{}, fmt.Errorf("convert yaml: %w", err)
		}
	}
	var snap memory.Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return memory.Snapshot{}, fmt.Errorf("parse seed: %w", err)
	}
	return snap, nil
}
