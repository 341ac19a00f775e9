// Package state encodes store snapshots into independently keyed buckets and
// decodes them back, falling back to seed data bucket by bucket.
package state

import (
	"communityconnect/internal/infra/persistence/memory"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Bucket keys used by every persistent backend.
const (
	BucketSchemaVersion = "schema_version"
	BucketUsers         = "users"
	BucketOrganizations = "organizations"
	BucketEvents        = "events"
	BucketSession       = "session"
	BucketTheme         = "theme"
)

// CollectionBuckets are rewritten after every committed transaction. The theme
// bucket is written on its own schedule.
var CollectionBuckets = []string{
	BucketSchemaVersion,
	BucketUsers,
	BucketOrganizations,
	BucketEvents,
	BucketSession,
}

// AllBuckets lists every bucket a backend may hold.
var AllBuckets = append(append([]string{}, CollectionBuckets...), BucketTheme)

// FallbackReason explains why a bucket was not taken from storage.
type FallbackReason string

// Fallback reasons.
const (
	ReasonAbsent    FallbackReason = "absent"
	ReasonMalformed FallbackReason = "malformed"
)

// Fallback records a bucket that was replaced by seed data during decoding.
type Fallback struct {
	Bucket string
	Reason FallbackReason
	Err    error
}

func (f Fallback) String() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", f.Bucket, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Bucket, f.Reason)
}

// ErrNewerSchema is returned when storage was written by a newer schema.
type ErrNewerSchema struct {
	Stored  int
	Current int
}

func (e ErrNewerSchema) Error() string {
	return fmt.Sprintf("stored schema version %d is newer than supported version %d", e.Stored, e.Current)
}

// migration upgrades a decoded snapshot by one schema version.
type migration func(memory.Snapshot) memory.Snapshot

// migrations[v] upgrades a snapshot written at version v to v+1. Version 0
// covers data written before the version bucket existed; hydration
// normalization is the whole upgrade.
var migrations = map[int]migration{
	0: func(s memory.Snapshot) memory.Snapshot { return s },
}

// Encode marshals the requested buckets of snapshot. All collection buckets
// are encoded when none are named.
func Encode(snapshot memory.Snapshot, buckets ...string) (map[string][]byte, error) {
	if len(buckets) == 0 {
		buckets = CollectionBuckets
	}
	out := make(map[string][]byte, len(buckets))
	for _, bucket := range buckets {
		var (
			payload []byte
			err     error
		)
		switch bucket {
		case BucketSchemaVersion:
			payload = []byte(strconv.Itoa(memory.SchemaVersion))
		case BucketUsers:
			payload, err = json.Marshal(snapshot.Users)
		case BucketOrganizations:
			payload, err = json.Marshal(snapshot.Organizations)
		case BucketEvents:
			payload, err = json.Marshal(snapshot.Events)
		case BucketSession:
			payload, err = json.Marshal(snapshot.Session)
		case BucketTheme:
			payload, err = json.Marshal(snapshot.Theme)
		default:
			return nil, fmt.Errorf("unknown bucket %q", bucket)
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = payload
	}
	return out, nil
}

// Decode rebuilds a snapshot from stored payloads. Each absent or malformed
// bucket is replaced by the corresponding part of seed and reported as a
// Fallback. The result is migrated to the current schema and normalized.
func Decode(payloads map[string][]byte, seed memory.Snapshot) (memory.Snapshot, []Fallback, error) {
	var (
		snapshot  memory.Snapshot
		fallbacks []Fallback
	)

	version := 0
	if raw, ok := payloads[BucketSchemaVersion]; ok {
		v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			fallbacks = append(fallbacks, Fallback{Bucket: BucketSchemaVersion, Reason: ReasonMalformed, Err: err})
		} else {
			version = v
		}
	}
	if version > memory.SchemaVersion {
		return memory.Snapshot{}, nil, ErrNewerSchema{Stored: version, Current: memory.SchemaVersion}
	}

	decode := func(bucket string, target any, useSeed func()) {
		raw, ok := payloads[bucket]
		if !ok || len(raw) == 0 {
			fallbacks = append(fallbacks, Fallback{Bucket: bucket, Reason: ReasonAbsent})
			useSeed()
			return
		}
		if err := json.Unmarshal(raw, target); err != nil {
			fallbacks = append(fallbacks, Fallback{Bucket: bucket, Reason: ReasonMalformed, Err: err})
			useSeed()
		}
	}

	decode(BucketUsers, &snapshot.Users, func() { snapshot.Users = seed.Users })
	decode(BucketOrganizations, &snapshot.Organizations, func() { snapshot.Organizations = seed.Organizations })
	decode(BucketEvents, &snapshot.Events, func() { snapshot.Events = seed.Events })
	decode(BucketSession, &snapshot.Session, func() { snapshot.Session = seed.Session })
	decode(BucketTheme, &snapshot.Theme, func() { snapshot.Theme = seed.Theme })

	for v := version; v < memory.SchemaVersion; v++ {
		if m, ok := migrations[v]; ok {
			snapshot = m(snapshot)
		}
	}
	return memory.MigrateSnapshot(snapshot), fallbacks, nil
}
