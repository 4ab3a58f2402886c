package signup

import (
	"errors"
	"strings"

	"github.com/devink/campusconnect/internal/identity"
)

// ErrFormNotFound is returned for unknown or expired form ids.
var ErrFormNotFound = errors.New("signup form not found")

// ErrFormClosed is returned when editing a form that already succeeded.
var ErrFormClosed = errors.New("signup form already submitted")

// mapCreateError turns an account creation or profile write failure into the
// message shown to the user and a metrics label.
func mapCreateError(err error) (msg, result string) {
	switch strings.TrimPrefix(identity.CodeOf(err), "auth/") {
	case "email-already-in-use":
		return MsgDuplicateAccount, ResultDuplicate
	case "invalid-email":
		return MsgInvalidEmail, ResultInvalidEmail
	default:
		return msgRegistrationErr + err.Error(), ResultError
	}
}
