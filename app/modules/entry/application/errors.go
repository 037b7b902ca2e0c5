package entryservice

import "errors"

// ErrUnknownEntryPath indicates an entry path with no configured attempt
// window. Handlers should reject the request as validation, not retry.
var ErrUnknownEntryPath = errors.New("unknown entry path")
