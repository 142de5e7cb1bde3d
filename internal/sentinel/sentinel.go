package sentinel

import "errors"

// Sentinel dependency errors. Storage and token layers return these (optionally
// wrapped) so the session store can translate them exactly once.
var (
	ErrCorrupt      = errors.New("corrupt")
	ErrExpired      = errors.New("expired")
	ErrInvalidInput = errors.New("invalid input")
)
