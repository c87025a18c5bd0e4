package checkout

import "errors"

var (
	// ErrAuthChallenge means the phone challenge could not be sent or the
	// code did not match.
	ErrAuthChallenge   = errors.New("phone verification failed")
	ErrInvalidState    = errors.New("operation not allowed in current checkout step")
	ErrSessionNotFound = errors.New("checkout session not found")

	ErrChallengeNotFound = errors.New("verification expired or unknown")
)
