// Package jobs persists batch download job records in SQLite.
//
// A Job is created by the request encoder at stage create, mutated in place by
// exactly one stage handler at a time, and deleted by the notify handler. The
// Store offers single-statement insert, update, and delete so every stage
// transition is atomic, plus an oldest-first poll that defines processing
// order.
//
// Structured job fields (columns, constraints, options, recipients, owners)
// are stored as tagged Value JSON. The database is transient storage for
// in-flight jobs; schema changes bump schemaVersion in schema.go.
package jobs
