package domain

import "errors"

var (
	// ErrNotFound indicates that a requested registration was not found.
	ErrNotFound = errors.New("registration not found")
	// ErrAccessDenied indicates that the acting user does not own the registration.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidURL indicates a webhook URL that is not a valid http/https URL.
	ErrInvalidURL = errors.New("invalid webhook url")
	// ErrInvalidTemplate indicates a payload template that is not a JSON object.
	ErrInvalidTemplate = errors.New("invalid payload template")
	// ErrInvalidCredential indicates a failed inbound API key check.
	ErrInvalidCredential = errors.New("invalid credential")
)
