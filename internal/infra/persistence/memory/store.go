// Package memory provides the in-memory transactional entity store that every
// persistent backend builds on.
package memory

import (
	"communityconnect/pkg/domain"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// User aliases domain.User for in-memory persistence operations.
	User = domain.User
	// Organization aliases domain.Organization.
	Organization = domain.Organization
	// Event aliases domain.Event.
	Event = domain.Event
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// SchemaVersion is the layout version written alongside persisted snapshots.
const SchemaVersion = 1

type memoryState struct {
	users         map[string]User
	organizations map[string]Organization
	events        map[string]Event
	session       domain.Session
	theme         domain.ThemeMode
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	SchemaVersion int                     `json:"schema_version"`
	Users         map[string]User         `json:"users"`
	Organizations map[string]Organization `json:"organizations"`
	Events        map[string]Event        `json:"events"`
	Session       domain.Session          `json:"session"`
	Theme         domain.ThemeMode        `json:"theme"`
}

func newMemoryState() memoryState {
	return memoryState{
		users:         make(map[string]User),
		organizations: make(map[string]Organization),
		events:        make(map[string]Event),
		theme:         domain.ThemeLight,
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		SchemaVersion: SchemaVersion,
		Users:         make(map[string]User, len(state.users)),
		Organizations: make(map[string]Organization, len(state.organizations)),
		Events:        make(map[string]Event, len(state.events)),
		Session:       state.session,
		Theme:         state.theme,
	}
	for k, v := range state.users {
		s.Users[k] = cloneUser(v)
	}
	for k, v := range state.organizations {
		s.Organizations[k] = cloneOrganization(v)
	}
	for k, v := range state.events {
		s.Events[k] = cloneEvent(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Users {
		state.users[k] = cloneUser(v)
	}
	for k, v := range s.Organizations {
		state.organizations[k] = cloneOrganization(v)
	}
	for k, v := range s.Events {
		state.events[k] = cloneEvent(v)
	}
	state.session = s.Session
	state.theme = s.Theme
	return state
}

// MigrateSnapshot applies hydration defaults: missing collections become
// empty, records take their id from the map key and are normalized, a session
// pointing at a missing user is cleared and the theme falls back to light.
func MigrateSnapshot(snapshot Snapshot) Snapshot {
	return migrateSnapshot(snapshot)
}

func migrateSnapshot(snapshot Snapshot) Snapshot {
	users := make(map[string]User, len(snapshot.Users))
	for id, u := range snapshot.Users {
		if id == "" {
			continue
		}
		u = cloneUser(u)
		u.ID = id
		domain.NormalizeUser(&u)
		users[id] = u
	}
	organizations := make(map[string]Organization, len(snapshot.Organizations))
	for id, o := range snapshot.Organizations {
		if id == "" {
			continue
		}
		o = cloneOrganization(o)
		o.ID = id
		domain.NormalizeOrganization(&o)
		organizations[id] = o
	}
	events := make(map[string]Event, len(snapshot.Events))
	for id, e := range snapshot.Events {
		if id == "" {
			continue
		}
		e = cloneEvent(e)
		e.ID = id
		domain.NormalizeEvent(&e)
		events[id] = e
	}
	snapshot.Users = users
	snapshot.Organizations = organizations
	snapshot.Events = events
	if _, ok := users[snapshot.Session.CurrentUserID]; !ok {
		snapshot.Session = domain.Session{}
	}
	if !snapshot.Theme.Valid() {
		snapshot.Theme = domain.ThemeLight
	}
	snapshot.SchemaVersion = SchemaVersion
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.users {
		cloned.users[k] = cloneUser(v)
	}
	for k, v := range s.organizations {
		cloned.organizations[k] = cloneOrganization(v)
	}
	for k, v := range s.events {
		cloned.events[k] = cloneEvent(v)
	}
	cloned.session = s.session
	cloned.theme = s.theme
	return cloned
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneUser(u User) User {
	cloned := u
	cloned.OrganizationsJoined = cloneStrings(u.OrganizationsJoined)
	cloned.OrganizationsFollowed = cloneStrings(u.OrganizationsFollowed)
	cloned.EventsAttending = cloneStrings(u.EventsAttending)
	cloned.Following = cloneStrings(u.Following)
	cloned.Followers = cloneStrings(u.Followers)
	cloned.BlockedUsers = cloneStrings(u.BlockedUsers)
	cloned.NotInterestedOrgs = cloneStrings(u.NotInterestedOrgs)
	cloned.ActivityFeed = make([]domain.ActivityItem, len(u.ActivityFeed))
	copy(cloned.ActivityFeed, u.ActivityFeed)
	return cloned
}

func cloneOrganization(o Organization) Organization {
	cloned := o
	cloned.Tags = cloneStrings(o.Tags)
	cloned.Events = cloneStrings(o.Events)
	cloned.RelatedOrganizations = cloneStrings(o.RelatedOrganizations)
	cloned.Members = make([]domain.Member, len(o.Members))
	copy(cloned.Members, o.Members)
	return cloned
}

func cloneEvent(e Event) Event {
	cloned := e
	cloned.Tags = cloneStrings(e.Tags)
	cloned.Attendees = cloneStrings(e.Attendees)
	if e.Coordinates != nil {
		c := *e.Coordinates
		cloned.Coordinates = &c
	}
	return cloned
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc replaces the time provider used to stamp records.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.nowFn = fn
	s.mu.Unlock()
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListUsers() []User { return listUsers(v.state) }

func (v transactionView) ListOrganizations() []Organization { return listOrganizations(v.state) }

func (v transactionView) ListEvents() []Event { return listEvents(v.state) }

func (v transactionView) FindUser(id string) (User, bool) {
	u, ok := v.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

func (v transactionView) FindOrganization(id string) (Organization, bool) {
	o, ok := v.state.organizations[id]
	if !ok {
		return Organization{}, false
	}
	return cloneOrganization(o), true
}

func (v transactionView) FindEvent(id string) (Event, bool) {
	e, ok := v.state.events[id]
	if !ok {
		return Event{}, false
	}
	return cloneEvent(e), true
}

func (v transactionView) SessionUserID() (string, bool) { return sessionUserID(v.state) }

// users and organizations are ordered by id; events by date, then id.
func listUsers(state *memoryState) []User {
	out := make([]User, 0, len(state.users))
	for _, u := range state.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func listOrganizations(state *memoryState) []Organization {
	out := make([]Organization, 0, len(state.organizations))
	for _, o := range state.organizations {
		out = append(out, cloneOrganization(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func listEvents(state *memoryState) []Event {
	out := make([]Event, 0, len(state.events))
	for _, e := range state.events {
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sessionUserID(state *memoryState) (string, bool) {
	id := state.session.CurrentUserID
	if id == "" {
		return "", false
	}
	if _, ok := state.users[id]; !ok {
		return "", false
	}
	return id, true
}

// RunInTransaction executes fn against a copy of the state and swaps it in
// when fn succeeds and no blocking rule violation is reported.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) FindUser(id string) (User, bool) {
	return newTransactionView(&tx.state).FindUser(id)
}

func (tx *transaction) FindOrganization(id string) (Organization, bool) {
	return newTransactionView(&tx.state).FindOrganization(id)
}

func (tx *transaction) FindEvent(id string) (Event, bool) {
	return newTransactionView(&tx.state).FindEvent(id)
}

func (tx *transaction) SessionUserID() (string, bool) { return sessionUserID(&tx.state) }

// SetSessionUser points the session at an existing user.
func (tx *transaction) SetSessionUser(id string) error {
	if _, ok := tx.state.users[id]; !ok {
		return domain.ErrNotFound{Entity: domain.EntityUser, ID: id}
	}
	before := tx.state.session
	tx.state.session = domain.Session{CurrentUserID: id}
	tx.recordChange(Change{Entity: domain.EntitySession, Action: domain.ActionUpdate, Before: before, After: tx.state.session})
	return nil
}

// ClearSession logs the session user out.
func (tx *transaction) ClearSession() {
	before := tx.state.session
	tx.state.session = domain.Session{}
	tx.recordChange(Change{Entity: domain.EntitySession, Action: domain.ActionUpdate, Before: before, After: tx.state.session})
}

// CreateUser stores a new user.
func (tx *transaction) CreateUser(u User) (User, error) {
	if u.ID == "" {
		u.ID = tx.store.newID()
	}
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, fmt.Errorf("user %q: %w", u.ID, domain.ErrDuplicateID)
	}
	u = cloneUser(u)
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	domain.NormalizeUser(&u)
	tx.state.users[u.ID] = u
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: cloneUser(u)})
	return cloneUser(u), nil
}

// UpdateUser mutates a user using the provided mutator function.
func (tx *transaction) UpdateUser(id string, mutator func(*User) error) (User, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return User{}, domain.ErrNotFound{Entity: domain.EntityUser, ID: id}
	}
	before := cloneUser(current)
	current = cloneUser(current)
	if err := mutator(&current); err != nil {
		return User{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	domain.NormalizeUser(&current)
	tx.state.users[id] = cloneUser(current)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, Before: before, After: cloneUser(current)})
	return cloneUser(current), nil
}

// CreateOrganization stores a new organization.
func (tx *transaction) CreateOrganization(o Organization) (Organization, error) {
	if o.ID == "" {
		o.ID = tx.store.newID()
	}
	if _, exists := tx.state.organizations[o.ID]; exists {
		return Organization{}, fmt.Errorf("organization %q: %w", o.ID, domain.ErrDuplicateID)
	}
	o = cloneOrganization(o)
	o.CreatedAt = tx.now
	o.UpdatedAt = tx.now
	domain.NormalizeOrganization(&o)
	tx.state.organizations[o.ID] = o
	tx.recordChange(Change{Entity: domain.EntityOrganization, Action: domain.ActionCreate, After: cloneOrganization(o)})
	return cloneOrganization(o), nil
}

// UpdateOrganization mutates an organization using the provided mutator function.
func (tx *transaction) UpdateOrganization(id string, mutator func(*Organization) error) (Organization, error) {
	current, ok := tx.state.organizations[id]
	if !ok {
		return Organization{}, domain.ErrNotFound{Entity: domain.EntityOrganization, ID: id}
	}
	before := cloneOrganization(current)
	current = cloneOrganization(current)
	if err := mutator(&current); err != nil {
		return Organization{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	domain.NormalizeOrganization(&current)
	tx.state.organizations[id] = cloneOrganization(current)
	tx.recordChange(Change{Entity: domain.EntityOrganization, Action: domain.ActionUpdate, Before: before, After: cloneOrganization(current)})
	return cloneOrganization(current), nil
}

// CreateEvent stores a new event.
func (tx *transaction) CreateEvent(e Event) (Event, error) {
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if _, exists := tx.state.events[e.ID]; exists {
		return Event{}, fmt.Errorf("event %q: %w", e.ID, domain.ErrDuplicateID)
	}
	e = cloneEvent(e)
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	domain.NormalizeEvent(&e)
	tx.state.events[e.ID] = e
	tx.recordChange(Change{Entity: domain.EntityEvent, Action: domain.ActionCreate, After: cloneEvent(e)})
	return cloneEvent(e), nil
}

// UpdateEvent mutates an event using the provided mutator function.
func (tx *transaction) UpdateEvent(id string, mutator func(*Event) error) (Event, error) {
	current, ok := tx.state.events[id]
	if !ok {
		return Event{}, domain.ErrNotFound{Entity: domain.EntityEvent, ID: id}
	}
	before := cloneEvent(current)
	current = cloneEvent(current)
	if err := mutator(&current); err != nil {
		return Event{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	domain.NormalizeEvent(&current)
	tx.state.events[id] = cloneEvent(current)
	tx.recordChange(Change{Entity: domain.EntityEvent, Action: domain.ActionUpdate, Before: before, After: cloneEvent(current)})
	return cloneEvent(current), nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

// ListUsers returns all users ordered by id.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listUsers(&s.state)
}

// GetOrganization retrieves an organization by id.
func (s *Store) GetOrganization(id string) (Organization, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.state.organizations[id]
	if !ok {
		return Organization{}, false
	}
	return cloneOrganization(o), true
}

// ListOrganizations returns all organizations ordered by id.
func (s *Store) ListOrganizations() []Organization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listOrganizations(&s.state)
}

// GetEvent retrieves an event by id.
func (s *Store) GetEvent(id string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.events[id]
	if !ok {
		return Event{}, false
	}
	return cloneEvent(e), true
}

// ListEvents returns all events ordered by date.
func (s *Store) ListEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEvents(&s.state)
}

// SessionUserID returns the id of the logged-in user, if any.
func (s *Store) SessionUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sessionUserID(&s.state)
}

// ThemeMode returns the stored theme preference.
func (s *Store) ThemeMode() domain.ThemeMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.theme
}

// SetThemeMode replaces the stored theme preference.
func (s *Store) SetThemeMode(_ context.Context, mode domain.ThemeMode) error {
	if !mode.Valid() {
		return domain.Invalid("unknown theme mode %q", mode)
	}
	s.mu.Lock()
	s.state.theme = mode
	s.mu.Unlock()
	return nil
}
