package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Records handed to Create and produced
// by Update mutators are normalized before they are stored.
type Transaction interface {
	Snapshot() TransactionView
	CreateUser(User) (User, error)
	UpdateUser(id string, mutator func(*User) error) (User, error)
	CreateOrganization(Organization) (Organization, error)
	UpdateOrganization(id string, mutator func(*Organization) error) (Organization, error)
	CreateEvent(Event) (Event, error)
	UpdateEvent(id string, mutator func(*Event) error) (Event, error)
	FindUser(id string) (User, bool)
	FindOrganization(id string) (Organization, bool)
	FindEvent(id string) (Event, bool)
	SessionUserID() (string, bool)
	SetSessionUser(id string) error
	ClearSession()
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
	SessionUserID() (string, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetUser(id string) (User, bool)
	ListUsers() []User
	GetOrganization(id string) (Organization, bool)
	ListOrganizations() []Organization
	GetEvent(id string) (Event, bool)
	ListEvents() []Event
	SessionUserID() (string, bool)
	ThemeMode() ThemeMode
	SetThemeMode(ctx context.Context, mode ThemeMode) error
	Close() error
}
