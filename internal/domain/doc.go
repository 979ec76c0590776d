// Package domain contains the core domain entities and value objects for
// modpoll.
//
// This package represents the innermost layer of the architecture. It has no
// dependencies on infrastructure concerns (serial ports, sockets, logging)
// and contains only the Modbus vocabulary and its invariants.
//
// # Entities
//
//   - [RequestSpec]: A logical Modbus request (function, address, count, payload)
//   - [Frame]: The exact byte sequence for one transaction on the wire
//   - [TransactionResult]: The outcome of one request/response exchange
//   - [Statistics]: Per-request and aggregate polling counters
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on Modbus rules and invariants
//   - Testable without mocks or external systems
package domain
