package blob

import (
	"communityconnect/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed blob.Store rooted at the provided path.
// Public URLs are built from baseURL when set.
func NewFilesystem(root, baseURL string) (Store, error) {
	return fs.New(root, fs.WithBaseURL(baseURL))
}
