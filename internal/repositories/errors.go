package repositories

import "errors"

// ErrDuplicate is wrapped into errors returned by Create (and Update, for
// unique columns) when the store's unique constraint rejects the row. The
// service-level existence pre-checks only narrow the race window; this
// sentinel is how the loser of that race is recognized.
var ErrDuplicate = errors.New("duplicate key")
