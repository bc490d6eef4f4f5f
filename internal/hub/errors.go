package hub

import "errors"

// Domain errors for the hub package.
var (
	// ErrNoData is returned by Refresh when the controller could not be
	// reached or its snapshot carried no records. Registries are unchanged.
	ErrNoData = errors.New("hub: no data from controller")

	// ErrInvalidTarget is returned by SetLevel for a target that is not
	// "up", "down", or a whole percentage 0-100. No request is sent.
	ErrInvalidTarget = errors.New("hub: invalid target level")

	// ErrNotFound is returned by callers that need an entity the controller
	// never announced. Hub lookups themselves return nil.
	ErrNotFound = errors.New("hub: not found")
)
