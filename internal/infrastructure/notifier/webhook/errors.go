package webhooknotifier

import "errors"

var (
	// ErrMissingEndpoints is returned if the notifier has no hook to invoke.
	ErrMissingEndpoints = errors.New("missing webhook endpoints")
	// ErrInvalidEndpoint is returned if a webhook endpoint is not a valid URI.
	ErrInvalidEndpoint = errors.New("webhook endpoint must be a valid URI")
)
