package application

import "errors"

var (
	// ErrTrackerAlreadyStarted is returned when starting a running tracker.
	ErrTrackerAlreadyStarted = errors.New("pending tx tracker already started")
	// ErrTrackerNotBound is returned when reconciling before the tracker has
	// ever been bound to a receipt source.
	ErrTrackerNotBound = errors.New("pending tx tracker not bound to any receipt source")
	// ErrUnsupportedChain is returned when the receipt source of a chain not
	// supported by the host is requested.
	ErrUnsupportedChain = errors.New("chain not supported")
	// ErrSessionAlreadyStarted ...
	ErrSessionAlreadyStarted = errors.New("session already started")
	// ErrMissingNotifier ...
	ErrMissingNotifier = errors.New("missing notifier")
	// ErrMissingChainRegistry ...
	ErrMissingChainRegistry = errors.New("missing chain registry")
	// ErrMissingHost ...
	ErrMissingHost = errors.New("missing host")
)
