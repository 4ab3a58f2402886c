package signup

// State is the position of a form in its submit lifecycle.
//
//	Editing -> Validating -> Submitting -> Succeeded
//	               |             |
//	               +-> Failed <--+
//
// Failed returns to Editing on the next field edit or submit attempt.
type State int

const (
	Editing State = iota
	Validating
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// User-facing messages.
const (
	MsgInvalidForm      = "Заполните все обязательные поля и проверьте требования к паролю"
	MsgDuplicateAccount = "Пользователь с таким email уже зарегистрирован"
	MsgInvalidEmail     = "Неверный формат email"
	msgRegistrationErr  = "Ошибка регистрации: "
)

// Result labels used for metrics.
const (
	ResultSucceeded    = "succeeded"
	ResultInvalid      = "invalid"
	ResultDuplicate    = "duplicate"
	ResultInvalidEmail = "invalid_email"
	ResultError        = "error"
)
