// Package errors provides error handling for mapknowledge.
//
// This package re-exports github.com/cockroachdb/errors so that every error
// created in the repository carries a stack trace, and defines the sentinel
// errors that make up the knowledge store's error taxonomy.
//
// Usage:
//
//	if err := store.Put(ctx, source, entity, rec); err != nil {
//	    return errors.Wrapf(err, "persist %s", entity)
//	}
//
//	if errors.Is(err, errors.ErrReadOnly) {
//	    // resolution still succeeds, the record is simply not persisted
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// Marking and combining
var (
	Mark               = crdb.Mark
	CombineErrors      = crdb.CombineErrors
	WithSecondaryError = crdb.WithSecondaryError
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapOnce     = crdb.UnwrapOnce
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Store open-time failures. These are fatal for the session that hit them.
var (
	// ErrMissingStore indicates the store file is absent and creation was not allowed
	ErrMissingStore = New("missing knowledge store")

	// ErrSchemaUpgradeRequired indicates a stale schema was opened read-only
	ErrSchemaUpgradeRequired = New("knowledge store schema requires an upgrade")

	// ErrMigrationFailed indicates a migration step's statements failed
	ErrMigrationFailed = New("knowledge store migration failed")

	// ErrUnknownSchemaVersion indicates the stored version has no registered migration
	ErrUnknownSchemaVersion = New("unknown knowledge store schema version")

	// ErrInvalidMigrationChain indicates the registered migrations do not form
	// a single unbroken chain to the current version
	ErrInvalidMigrationChain = New("invalid migration chain")
)

// Runtime failures.
var (
	// ErrReadOnly indicates a mutation was attempted on a read-only store
	ErrReadOnly = New("knowledge store is read only")

	// ErrProviderUnavailable indicates a knowledge provider could not be reached
	// or returned an unusable answer
	ErrProviderUnavailable = New("knowledge provider unavailable")

	// ErrUnknownKnowledgeSource indicates an explicit knowledge source is not in the store
	ErrUnknownKnowledgeSource = New("unknown knowledge source")

	// ErrNoKnowledge indicates a session was configured with neither a store nor a provider
	ErrNoKnowledge = New("no knowledge store and no providers")

	// ErrInvalidConfig indicates a session configuration is inconsistent
	ErrInvalidConfig = New("invalid configuration")
)

// IsReadOnly checks if an error is or wraps ErrReadOnly
func IsReadOnly(err error) bool {
	return err != nil && Is(err, ErrReadOnly)
}

// IsProviderUnavailable checks if an error is or wraps ErrProviderUnavailable
func IsProviderUnavailable(err error) bool {
	return err != nil && Is(err, ErrProviderUnavailable)
}

// IsOpenError reports whether err is one of the store open-time failures.
func IsOpenError(err error) bool {
	return err != nil && IsAny(err,
		ErrMissingStore,
		ErrSchemaUpgradeRequired,
		ErrMigrationFailed,
		ErrUnknownSchemaVersion,
		ErrInvalidMigrationChain,
	)
}

// WrapProviderUnavailable marks err as a provider failure while keeping its message
func WrapProviderUnavailable(err error, provider string) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, "%s", provider), ErrProviderUnavailable)
}
