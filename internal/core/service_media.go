package core

import (
	"communityconnect/internal/blob"
	"communityconnect/pkg/domain"
	"context"
	"fmt"
	"io"
	"strings"
)

// ImageKind names the organization image slot an upload replaces.
type ImageKind string

// Organization image slots.
const (
	ImageLogo  ImageKind = "logo"
	ImageCover ImageKind = "cover"
)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// mediaKeyPrefixes are the namespaces uploads are written under. Other
// objects in a shared blob store, such as persisted state, are not media.
var mediaKeyPrefixes = []string{"users/", "organizations/"}

// IsMediaKey reports whether key names an uploaded image.
func IsMediaKey(key string) bool {
	for _, p := range mediaKeyPrefixes {
		if strings.HasPrefix(key, p) && !strings.Contains(key, "..") {
			return true
		}
	}
	return false
}

// Media returns the configured media blob store, or nil.
func (s *Service) Media() blob.Store { return s.media }

// MediaKey strips the media base URL from a stored record URL. It reports
// false for URLs that do not point into the media store.
func (s *Service) MediaKey(url string) (string, bool) {
	if !strings.HasPrefix(url, s.mediaBaseURL) {
		return "", false
	}
	return strings.TrimPrefix(url, s.mediaBaseURL), true
}

func (s *Service) putImage(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if s.media == nil {
		return "", fmt.Errorf("media store not configured: %w", blob.ErrUnsupported)
	}
	ext, ok := imageExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", domain.Invalid("unsupported image type %q", contentType)
	}
	key += ext
	if _, err := s.media.Put(ctx, key, r, blob.PutOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return s.mediaBaseURL + key, nil
}

// UploadOrganizationImage stores an image and points the organization's logo
// or cover image at it.
func (s *Service) UploadOrganizationImage(ctx context.Context, orgID string, kind ImageKind, r io.Reader, contentType string) (domain.Organization, domain.Result, error) {
	var updated domain.Organization
	out, err := s.observe(ctx, "upload_organization_img", func(ctx context.Context) (opResult, error) {
		if kind != ImageLogo && kind != ImageCover {
			return opResult{entityID: orgID}, domain.Invalid("unknown image kind %q", kind)
		}
		if _, ok := s.store.GetOrganization(orgID); !ok {
			return opResult{entityID: orgID}, domain.ErrNotFound{Entity: domain.EntityOrganization, ID: orgID}
		}
		url, err := s.putImage(ctx, fmt.Sprintf("organizations/%s/%s", orgID, kind), r, contentType)
		if err != nil {
			return opResult{entityID: orgID}, err
		}
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateOrganization(orgID, func(o *domain.Organization) error {
				if kind == ImageLogo {
					o.Logo = url
				} else {
					o.CoverImage = url
				}
				return nil
			})
			return err
		})
		return opResult{entityID: orgID, outcome: domain.OutcomeApplied, result: res}, err
	})
	return updated, out.result, err
}

// UploadAvatar stores an image as the session user's avatar.
func (s *Service) UploadAvatar(ctx context.Context, r io.Reader, contentType string) (domain.User, domain.Result, error) {
	var updated domain.User
	out, err := s.observe(ctx, "upload_avatar", func(ctx context.Context) (opResult, error) {
		current, ok := s.CurrentUser()
		if !ok {
			return opResult{}, domain.ErrNoSession
		}
		url, err := s.putImage(ctx, fmt.Sprintf("users/%s/avatar", current.ID), r, contentType)
		if err != nil {
			return opResult{entityID: current.ID}, err
		}
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			updated, err = tx.UpdateUser(current.ID, func(u *domain.User) error {
				u.Avatar = url
				return nil
			})
			return err
		})
		return opResult{entityID: current.ID, outcome: domain.OutcomeApplied, result: res}, err
	})
	return updated, out.result, err
}
