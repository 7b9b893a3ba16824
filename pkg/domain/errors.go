package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrClientNotFound is returned when no client matches a normalized identifier.
var ErrClientNotFound = errors.New("client not found")

// ErrInvalidAmount is returned when a monetary input is not strictly positive
// (or negative, for amounts where zero is allowed).
var ErrInvalidAmount = errors.New("invalid amount")

// ErrUnsupportedCurrency is returned when a quote provider does not know a currency pair.
var ErrUnsupportedCurrency = errors.New("unsupported currency pair")

// ErrInputTooLarge is returned when a user input exceeds the configured size limit.
var ErrInputTooLarge = errors.New("input too large")

// ErrInvalidUTF8 is returned when a user input is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("input is not valid utf-8")
