package blob

import (
	"context"
	"fmt"
)

// Config selects and parameterizes a blob backend.
type Config struct {
	Driver        Driver
	FSRoot        string // root directory when Driver is fs (default ./blobdata)
	PublicBaseURL string // optional base for fs object URLs
	S3            S3Config
}

// Open constructs the blob.Store named by cfg.Driver (default fs).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot, cfg.PublicBaseURL)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
