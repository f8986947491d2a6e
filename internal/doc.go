// Package internal holds the RSVP server internals.
//
// - api: routing, middleware, handlers and problem responses
// - domain: users, events and registrations services
// - storage: PostgreSQL repositories and the in-memory store
// - auth, audit, config, metrics, telemetry, validation, sanitize: shared infrastructure
package internal
