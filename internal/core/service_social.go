package core

import (
	"communityconnect/pkg/domain"
	"context"
)

// BlockUser adds userID to the session user's blocked list. The target does
// not have to resolve.
func (s *Service) BlockUser(ctx context.Context, userID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "block_user", userID, func(tx domain.Transaction) error {
		user, err := sessionUser(tx)
		if err != nil {
			return err
		}
		if domain.ContainsID(user.BlockedUsers, userID) {
			return errNoChange
		}
		_, err = tx.UpdateUser(user.ID, func(u *domain.User) error {
			u.BlockedUsers, _ = domain.AddID(u.BlockedUsers, userID)
			return nil
		})
		return err
	})
}

// FollowUser records a one-way follow edge from the session user to userID.
func (s *Service) FollowUser(ctx context.Context, userID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "follow_user", userID, func(tx domain.Transaction) error {
		return setFollow(tx, userID, true)
	})
}

// UnfollowUser removes the follow edge from the session user to userID.
func (s *Service) UnfollowUser(ctx context.Context, userID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "unfollow_user", userID, func(tx domain.Transaction) error {
		return setFollow(tx, userID, false)
	})
}

func setFollow(tx domain.Transaction, targetID string, follow bool) error {
	user, err := sessionUser(tx)
	if err != nil {
		return err
	}
	if user.ID == targetID {
		return domain.Invalid("users cannot follow themselves")
	}
	if _, err := findUser(tx, targetID); err != nil {
		return err
	}
	if domain.ContainsID(user.Following, targetID) == follow {
		return errNoChange
	}
	edit := domain.AddID
	if !follow {
		edit = domain.RemoveID
	}
	if _, err := tx.UpdateUser(user.ID, func(u *domain.User) error {
		u.Following, _ = edit(u.Following, targetID)
		return nil
	}); err != nil {
		return err
	}
	_, err = tx.UpdateUser(targetID, func(u *domain.User) error {
		u.Followers, _ = edit(u.Followers, user.ID)
		return nil
	})
	return err
}
