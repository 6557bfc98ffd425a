package storage

import (
	"context"
	"errors"
	"time"

	"codegate/internal/codebank"
)

// Revision is an opaque version token for the stored codebank record. The
// zero value means "no record exists yet"; persisting with it succeeds only
// if nothing has been written in the meantime.
type Revision string

// ErrRevisionConflict is returned by Persist when the backing record changed
// since the revision passed in was loaded. The caller must reload and
// re-apply its mutation.
var ErrRevisionConflict = errors.New("codebank record changed since load")

// RecordStore owns the single durable codebank record.
type RecordStore interface {
	// Load reads the backing record. An absent record is not an error: it
	// returns an empty bank and the zero Revision, which is how first-time
	// setup is handled. An unreadable or unparsable record is an error.
	Load(ctx context.Context) (*codebank.Codebank, Revision, error)

	// Persist overwrites the backing record, conditional on it still being at
	// the given revision. Returns the new revision on success, or
	// ErrRevisionConflict if another writer got there first.
	Persist(ctx context.Context, bank *codebank.Codebank, rev Revision) (Revision, error)
}

// URLSigner generates temporary download URLs for objects in the store.
type URLSigner interface {
	// SignDownload returns a URL for the object at key that stops working
	// after ttl.
	SignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}
