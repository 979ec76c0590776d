package ports

import "github.com/mbtools/modpoll/internal/domain"

// SettingsStore persists connection settings. The core treats the stored
// record as opaque; validation happens when a connection is opened.
type SettingsStore interface {
	LoadSettings() (ConnectionConfig, error)
	SaveSettings(ConnectionConfig) error
}

// RequestStore persists the ordered list of request templates, keyed by id.
type RequestStore interface {
	LoadRequests() ([]domain.RequestSpec, error)
	SaveRequests([]domain.RequestSpec) error
}
