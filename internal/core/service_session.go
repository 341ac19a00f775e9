package core

import (
	"communityconnect/pkg/domain"
	"context"
	"net/url"
	"strings"
)

// Registration is the signup form.
type Registration struct {
	Name           string
	Email          string
	Password       string
	Bio            string
	Major          string
	IsOrganization bool
}

// Login points the session at userID.
func (s *Service) Login(ctx context.Context, userID string) (domain.User, error) {
	var user domain.User
	_, _, err := s.mutate(ctx, "login", userID, func(tx domain.Transaction) error {
		if err := tx.SetSessionUser(userID); err != nil {
			return err
		}
		user, _ = tx.FindUser(userID)
		return nil
	})
	return user, err
}

// Logout clears the session. Logging out without a session is a no-op.
func (s *Service) Logout(ctx context.Context) (domain.Outcome, error) {
	outcome, _, err := s.mutate(ctx, "logout", "", func(tx domain.Transaction) error {
		if _, ok := tx.SessionUserID(); !ok {
			return errNoChange
		}
		tx.ClearSession()
		return nil
	})
	return outcome, err
}

// CurrentUser resolves the session user.
func (s *Service) CurrentUser() (domain.User, bool) {
	id, ok := s.store.SessionUserID()
	if !ok {
		return domain.User{}, false
	}
	return s.store.GetUser(id)
}

// UpdateUser replaces the stored record with user. An empty password, or
// the stored value sent back unchanged, keeps the stored one. Any other
// password goes through the credential verifier's Hash.
func (s *Service) UpdateUser(ctx context.Context, user domain.User) (domain.User, domain.Result, error) {
	var updated domain.User
	_, res, err := s.mutate(ctx, "update_user", user.ID, func(tx domain.Transaction) error {
		if _, err := sessionUser(tx); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateUser(user.ID, func(u *domain.User) error {
			password := u.Password
			if user.Password != "" && user.Password != password {
				hashed, err := s.credentials.Hash(user.Password)
				if err != nil {
					return err
				}
				password = hashed
			}
			*u = user
			u.Password = password
			return nil
		})
		return err
	})
	return updated, res, err
}

// AddUser stores a new user. Organization accounts get a mirrored
// Organization record with the same id and the user as president.
func (s *Service) AddUser(ctx context.Context, user domain.User) (domain.User, domain.Result, error) {
	var created domain.User
	_, res, err := s.mutate(ctx, "add_user", user.ID, func(tx domain.Transaction) error {
		var err error
		created, err = addUser(tx, user)
		return err
	})
	return created, res, err
}

func addUser(tx domain.Transaction, user domain.User) (domain.User, error) {
	created, err := tx.CreateUser(user)
	if err != nil {
		return domain.User{}, err
	}
	if !created.IsOrganization {
		return created, nil
	}
	_, err = tx.CreateOrganization(mirrorOrganization(created))
	if err != nil {
		return domain.User{}, err
	}
	return created, nil
}

func mirrorOrganization(u domain.User) domain.Organization {
	return domain.Organization{
		Base:        domain.Base{ID: u.ID},
		Name:        u.Name,
		Description: u.Bio,
		Logo:        u.Avatar,
		MemberCount: 1,
		Members:     []domain.Member{{UserID: u.ID, Role: domain.RolePresident}},
	}
}

// Register validates a signup, creates the user and logs them in.
func (s *Service) Register(ctx context.Context, reg Registration) (domain.User, domain.Result, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	var created domain.User
	_, res, err := s.mutate(ctx, "register", "", func(tx domain.Transaction) error {
		if reg.Name == "" || reg.Email == "" || reg.Password == "" {
			return domain.Invalid("name, email and password are required")
		}
		if _, exists := findUserByEmail(tx.Snapshot().ListUsers(), reg.Email); exists {
			return domain.ErrDuplicateEmail
		}
		password, err := s.credentials.Hash(reg.Password)
		if err != nil {
			return err
		}
		created, err = addUser(tx, domain.User{
			Name:           reg.Name,
			Email:          reg.Email,
			Password:       password,
			Bio:            reg.Bio,
			Major:          reg.Major,
			Avatar:         "https://ui-avatars.com/api/?name=" + url.QueryEscape(reg.Name),
			IsOrganization: reg.IsOrganization,
			Notifications:  domain.DefaultNotificationSettings(),
			Privacy:        domain.DefaultPrivacySettings(),
		})
		if err != nil {
			return err
		}
		return tx.SetSessionUser(created.ID)
	})
	return created, res, err
}

// Authenticate checks an email/password pair and logs the user in. Unknown
// emails and wrong passwords both report ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	var user domain.User
	_, _, err := s.mutate(ctx, "authenticate", "", func(tx domain.Transaction) error {
		u, ok := findUserByEmail(tx.Snapshot().ListUsers(), strings.TrimSpace(email))
		if !ok || !s.credentials.Verify(u.Password, password) {
			return domain.ErrInvalidCredentials
		}
		user = u
		return tx.SetSessionUser(u.ID)
	})
	return user, err
}

func findUserByEmail(users []domain.User, email string) (domain.User, bool) {
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return domain.User{}, false
}

// ThemeMode returns the stored theme preference.
func (s *Service) ThemeMode() domain.ThemeMode {
	return s.store.ThemeMode()
}

// SetThemeMode stores the theme preference.
func (s *Service) SetThemeMode(ctx context.Context, mode domain.ThemeMode) error {
	_, err := s.observe(ctx, "set_theme_mode", func(ctx context.Context) (opResult, error) {
		if err := s.store.SetThemeMode(ctx, mode); err != nil {
			return opResult{}, err
		}
		return opResult{entityID: string(mode), outcome: domain.OutcomeApplied}, nil
	})
	return err
}

// AddActivity prepends item to the session user's activity feed. A zero
// timestamp is set to the current time.
func (s *Service) AddActivity(ctx context.Context, item domain.ActivityItem) (domain.Result, error) {
	if item.Timestamp.IsZero() {
		item.Timestamp = s.now()
	}
	_, res, err := s.mutate(ctx, "add_activity", item.ID, func(tx domain.Transaction) error {
		u, err := sessionUser(tx)
		if err != nil {
			return err
		}
		_, err = tx.UpdateUser(u.ID, func(u *domain.User) error {
			u.ActivityFeed = append([]domain.ActivityItem{item}, u.ActivityFeed...)
			return nil
		})
		return err
	})
	return res, err
}
