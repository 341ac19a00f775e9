// Package geocode resolves free-text event locations to map coordinates.
package geocode

import (
	"communityconnect/pkg/domain"
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNoResult is returned when an address resolves to nothing.
var ErrNoResult = errors.New("geocode: no result")

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}

// Func adapts a function to the Geocoder interface.
type Func func(ctx context.Context, address string) (domain.Coordinates, error)

// Geocode calls f.
func (f Func) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	return f(ctx, address)
}

// Static resolves addresses from a fixed table. Lookups ignore case and
// surrounding whitespace.
type Static struct {
	mu      sync.RWMutex
	entries map[string]domain.Coordinates
}

// NewStatic returns a Static geocoder seeded with entries.
func NewStatic(entries map[string]domain.Coordinates) *Static {
	s := &Static{entries: make(map[string]domain.Coordinates, len(entries))}
	for addr, c := range entries {
		s.entries[staticKey(addr)] = c
	}
	return s
}

// Add registers or replaces an address.
func (s *Static) Add(address string, c domain.Coordinates) {
	s.mu.Lock()
	s.entries[staticKey(address)] = c
	s.mu.Unlock()
}

// Geocode implements Geocoder.
func (s *Static) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}
	s.mu.RLock()
	c, ok := s.entries[staticKey(address)]
	s.mu.RUnlock()
	if !ok {
		return domain.Coordinates{}, ErrNoResult
	}
	return c, nil
}

func staticKey(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
