package types

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrTagInvalidArgument marks errors caused by bad input
	ErrTagInvalidArgument = goerr.NewTag("invalid_argument")
	// ErrTagUnauthorized marks errors caused by failed request verification
	ErrTagUnauthorized = goerr.NewTag("unauthorized")
	// ErrTagNotFound marks errors caused by a missing entity that is required
	ErrTagNotFound = goerr.NewTag("not_found")
)
