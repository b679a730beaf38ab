package auth

import "errors"

// Sentinel errors for authentication operations. They are wrapped with
// fmt.Errorf("%w") when returned and mapped to HTTP statuses by handlers.
var (
	// ErrEmailInUse indicates signup with an email that already has an account.
	// HTTP Status: 400 Bad Request
	ErrEmailInUse = errors.New("email in use")

	// ErrUserNotFound indicates signin with an email that has no account.
	// HTTP Status: 404 Not Found
	ErrUserNotFound = errors.New("user not found")

	// ErrBadCredentials indicates the password does not match the stored credential.
	// HTTP Status: 400 Bad Request
	ErrBadCredentials = errors.New("bad password")

	// ErrMalformedCredential indicates a stored credential without a salt separator.
	// HTTP Status: 500 Internal Server Error
	ErrMalformedCredential = errors.New("malformed credential")

	// ErrNotFound indicates a user looked up by id does not exist.
	// HTTP Status: 404 Not Found
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates a guard rejected the request.
	// HTTP Status: 403 Forbidden
	ErrForbidden = errors.New("forbidden")

	// ErrTooManyAttempts indicates signin is locked out for this client and email.
	// HTTP Status: 429 Too Many Requests
	ErrTooManyAttempts = errors.New("too many signin attempts")
)
