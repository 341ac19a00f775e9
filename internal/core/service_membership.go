package core

import (
	"communityconnect/pkg/domain"
	"context"
)

// isMember treats either side of the relationship as membership: the roster
// entry or the org id in the user's joined list.
func isMember(org domain.Organization, user domain.User) bool {
	return org.HasMember(user.ID) || domain.ContainsID(user.OrganizationsJoined, org.ID)
}

func findOrganization(tx domain.Transaction, orgID string) (domain.Organization, error) {
	org, ok := tx.FindOrganization(orgID)
	if !ok {
		return domain.Organization{}, domain.ErrNotFound{Entity: domain.EntityOrganization, ID: orgID}
	}
	return org, nil
}

func findUser(tx domain.Transaction, userID string) (domain.User, error) {
	u, ok := tx.FindUser(userID)
	if !ok {
		return domain.User{}, domain.ErrNotFound{Entity: domain.EntityUser, ID: userID}
	}
	return u, nil
}

// addMember links user and org on both sides and counts the new member.
func addMember(tx domain.Transaction, org domain.Organization, user domain.User, role domain.MemberRole) error {
	if isMember(org, user) {
		return errNoChange
	}
	if _, err := tx.UpdateOrganization(org.ID, func(o *domain.Organization) error {
		o.Members = append(o.Members, domain.Member{UserID: user.ID, Role: role})
		o.MemberCount++
		return nil
	}); err != nil {
		return err
	}
	_, err := tx.UpdateUser(user.ID, func(u *domain.User) error {
		u.OrganizationsJoined, _ = domain.AddID(u.OrganizationsJoined, org.ID)
		return nil
	})
	return err
}

// dropMember clears both sides of the relationship and decrements the
// member count, floored at zero.
func dropMember(tx domain.Transaction, org domain.Organization, user domain.User) error {
	if !isMember(org, user) {
		return errNoChange
	}
	if _, err := tx.UpdateOrganization(org.ID, func(o *domain.Organization) error {
		o.RemoveMember(user.ID)
		if o.MemberCount > 0 {
			o.MemberCount--
		}
		return nil
	}); err != nil {
		return err
	}
	_, err := tx.UpdateUser(user.ID, func(u *domain.User) error {
		u.OrganizationsJoined, _ = domain.RemoveID(u.OrganizationsJoined, org.ID)
		return nil
	})
	return err
}

// JoinOrganization adds the session user to orgID.
func (s *Service) JoinOrganization(ctx context.Context, orgID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "join_organization", orgID, func(tx domain.Transaction) error {
		user, err := sessionUser(tx)
		if err != nil {
			return err
		}
		org, err := findOrganization(tx, orgID)
		if err != nil {
			return err
		}
		return addMember(tx, org, user, domain.RoleMember)
	})
}

// LeaveOrganization removes the session user from orgID.
func (s *Service) LeaveOrganization(ctx context.Context, orgID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "leave_organization", orgID, func(tx domain.Transaction) error {
		user, err := sessionUser(tx)
		if err != nil {
			return err
		}
		org, err := findOrganization(tx, orgID)
		if err != nil {
			return err
		}
		return dropMember(tx, org, user)
	})
}

// InviteMemberToOrganization adds userID to orgID as a member.
func (s *Service) InviteMemberToOrganization(ctx context.Context, orgID, userID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "invite_member", orgID, func(tx domain.Transaction) error {
		org, err := findOrganization(tx, orgID)
		if err != nil {
			return err
		}
		user, err := findUser(tx, userID)
		if err != nil {
			return err
		}
		return addMember(tx, org, user, domain.RoleMember)
	})
}

// RemoveMemberFromOrganization removes userID from orgID. Removing a
// non-member leaves the organization untouched. A user id that no longer
// resolves is still dropped from the roster.
func (s *Service) RemoveMemberFromOrganization(ctx context.Context, orgID, userID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "remove_member", orgID, func(tx domain.Transaction) error {
		org, err := findOrganization(tx, orgID)
		if err != nil {
			return err
		}
		user, ok := tx.FindUser(userID)
		if !ok {
			if !org.HasMember(userID) {
				return errNoChange
			}
			_, err := tx.UpdateOrganization(orgID, func(o *domain.Organization) error {
				o.RemoveMember(userID)
				if o.MemberCount > 0 {
					o.MemberCount--
				}
				return nil
			})
			return err
		}
		return dropMember(tx, org, user)
	})
}

// FollowOrganization subscribes the session user to orgID.
func (s *Service) FollowOrganization(ctx context.Context, orgID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "follow_organization", orgID, func(tx domain.Transaction) error {
		user, err := sessionUser(tx)
		if err != nil {
			return err
		}
		if _, err := findOrganization(tx, orgID); err != nil {
			return err
		}
		if domain.ContainsID(user.OrganizationsFollowed, orgID) {
			return errNoChange
		}
		if _, err := tx.UpdateUser(user.ID, func(u *domain.User) error {
			u.OrganizationsFollowed, _ = domain.AddID(u.OrganizationsFollowed, orgID)
			return nil
		}); err != nil {
			return err
		}
		_, err = tx.UpdateOrganization(orgID, func(o *domain.Organization) error {
			o.FollowerCount++
			return nil
		})
		return err
	})
}

// UnfollowOrganization reverses FollowOrganization.
func (s *Service) UnfollowOrganization(ctx context.Context, orgID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "unfollow_organization", orgID, func(tx domain.Transaction) error {
		user, err := sessionUser(tx)
		if err != nil {
			return err
		}
		if _, err := findOrganization(tx, orgID); err != nil {
			return err
		}
		if !domain.ContainsID(user.OrganizationsFollowed, orgID) {
			return errNoChange
		}
		if _, err := tx.UpdateUser(user.ID, func(u *domain.User) error {
			u.OrganizationsFollowed, _ = domain.RemoveID(u.OrganizationsFollowed, orgID)
			return nil
		}); err != nil {
			return err
		}
		_, err = tx.UpdateOrganization(orgID, func(o *domain.Organization) error {
			if o.FollowerCount > 0 {
				o.FollowerCount--
			}
			return nil
		})
		return err
	})
}

// UpdateOrganization replaces the stored organization record.
func (s *Service) UpdateOrganization(ctx context.Context, org domain.Organization) (domain.Organization, domain.Result, error) {
	var updated domain.Organization
	_, res, err := s.mutate(ctx, "update_organization", org.ID, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateOrganization(org.ID, func(o *domain.Organization) error {
			*o = org
			return nil
		})
		return err
	})
	return updated, res, err
}

// MarkNotInterested hides orgID from the session user's recommendations.
func (s *Service) MarkNotInterested(ctx context.Context, orgID string) (domain.Outcome, domain.Result, error) {
	return s.mutate(ctx, "mark_not_interested", orgID, func(tx domain.Transaction) error {
		user, err := sessionUser(tx)
		if err != nil {
			return err
		}
		if domain.ContainsID(user.NotInterestedOrgs, orgID) {
			return errNoChange
		}
		_, err = tx.UpdateUser(user.ID, func(u *domain.User) error {
			u.NotInterestedOrgs, _ = domain.AddID(u.NotInterestedOrgs, orgID)
			return nil
		})
		return err
	})
}
