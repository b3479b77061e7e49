package auth

import "errors"

// Виды отказов. Конкретные ошибки оборачивают их и несут сообщение для клиента.
var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrMalformedCredential = errors.New("malformed credential")
	ErrCredentialExpired   = errors.New("credential expired")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrPrincipalNotFound   = errors.New("principal not found")
	ErrForbidden           = errors.New("forbidden")
)

type Error struct {
	kind    error
	message string
}

func (e *Error) Error() string { return e.message }

func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, message string) *Error {
	return &Error{kind: kind, message: message}
}

var (
	errNoHeader      = newError(ErrUnauthenticated, "No authentication token, access denied")
	errEmptyToken    = newError(ErrUnauthenticated, "No token provided")
	errBadScheme     = newError(ErrMalformedCredential, "Invalid token format. Use Bearer token")
	errExpired       = newError(ErrCredentialExpired, "Token has expired")
	errInvalid       = newError(ErrInvalidCredential, "Token is not valid")
	errNoPrincipal   = newError(ErrPrincipalNotFound, "User not found")
	errAdminRequired = newError(ErrForbidden, "Access denied. Admin only.")
)

// IsAuthFailure сообщает, что ошибка - отказ в аутентификации (401).
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrMalformedCredential) ||
		errors.Is(err, ErrCredentialExpired) ||
		errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrPrincipalNotFound)
}

// Message возвращает текст для клиента; для чужих ошибок - fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.message
	}
	return fallback
}
