package auth

import "errors"

// Common authentication service errors
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token is not yet valid (nbf claim in the future)
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrWrongTokenType indicates a token of another type was presented
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrRevokedToken indicates the token was revoked by logout
	ErrRevokedToken = errors.New("authentication token has been revoked")

	// ErrUnknownSubject indicates the token names a user that does not exist
	ErrUnknownSubject = errors.New("token subject does not exist")
)

// IsCredentialError reports whether err is a rejection of the presented
// credential, as opposed to a failure of the infrastructure checking it.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrTokenNotYetValid) ||
		errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrWrongTokenType) ||
		errors.Is(err, ErrRevokedToken) ||
		errors.Is(err, ErrUnknownSubject)
}
