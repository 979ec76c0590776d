// Package ports defines the interfaces that connect the application layer to
// infrastructure adapters.
//
// Ports are the boundaries between the application core and the outside
// world. They define what the core needs from external systems without
// specifying how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [Transport]: Writes request frames and reads exactly one response frame
//   - [SettingsStore]: Persists connection settings
//   - [RequestStore]: Persists the ordered request template list
//   - [Logger]: Structured logging abstraction
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// serial, TCP, file system and zerolog implementations. The separation keeps
// application logic testable with hand-rolled mocks and the dependency
// direction pointing inward.
package ports
