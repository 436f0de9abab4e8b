package config

import "errors"

// ErrInvalid marks any structural configuration failure. Callers match with
// errors.Is; the wrapping message carries the specific defect.
var ErrInvalid = errors.New("invalid configuration")
