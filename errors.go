package users

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// ErrSelfDelete is returned when a delete operation targets the acting user.
var ErrSelfDelete = errors.New("you cannot delete yourself")

// ErrTokenExpired is returned when a confirmation token is past its TTL.
var ErrTokenExpired = errors.New("confirmation token is expired")

// ErrTokenInvalid is returned when a confirmation token fails validation,
// including tokens invalidated by a password change.
var ErrTokenInvalid = errors.New("confirmation token is invalid")

// ErrNoEmptyString is the error for empty password input
var ErrNoEmptyString = errors.New("password cannot be an empty string")

// ErrMismatchedHashAndPassword is the error for failed password checks
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid")

// TextCodeDuplicateEmail tags both flavors of the duplicate email failure
const TextCodeDuplicateEmail = "DUPLICATE_EMAIL"

// NewDuplicateEmailError builds the save time duplicate failure: a hard
// conflict that stops the persistence attempt.
func NewDuplicateEmailError(email string) *goerrors.Error {
	return goerrors.New(
		"a user with this email ("+email+") already exists",
		goerrors.CategoryConflict,
	).WithTextCode(TextCodeDuplicateEmail).
		WithMetadata(map[string]any{"email": email})
}

// NewEmailValidationError builds the form level counterpart of the
// duplicate failure, surfaced as a field error rather than a conflict.
func NewEmailValidationError(email string) *goerrors.Error {
	return goerrors.New(
		"a user with this email ("+email+") already exists",
		goerrors.CategoryValidation,
	).WithTextCode(TextCodeDuplicateEmail).
		WithMetadata(map[string]any{"email": email})
}

// IsDuplicateEmail reports whether err is either flavor of the duplicate
// email failure.
func IsDuplicateEmail(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == TextCodeDuplicateEmail
	}
	return false
}
