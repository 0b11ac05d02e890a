package transaction

import "errors"

// Transaction errors.
var (
	// ErrDuplicateTransaction is returned when registering an id that
	// is already pending.
	ErrDuplicateTransaction = errors.New("transaction: duplicate id")

	// ErrNilCallback is returned when registering without a callback.
	ErrNilCallback = errors.New("transaction: nil callback")
)
