// Package types defines the record shapes, entity kinds, snapshot format,
// configuration, and standard errors for the caremon storage system.
//
// Records are validated with Validate before they reach the database layer.
// Validation is pure: it never touches storage and never mutates its input;
// key uniqueness is enforced by storage, not here.
package types
