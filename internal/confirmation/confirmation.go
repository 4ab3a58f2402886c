// Package confirmation describes the success view shown after login or signup.
package confirmation

import "net/url"

// Kind selects the confirmation message.
type Kind string

const (
	Login  Kind = "login"
	Signup Kind = "signup"
)

// View is the text shown on the confirmation page.
type View struct {
	Title    string
	Subtitle string
}

const (
	genericTitle   = "Операция выполнена успешно!"
	welcomeBack    = "Добро пожаловать обратно!"
	accountIsReady = "Ваш аккаунт готов к использованию"
)

// Lookup maps a raw type parameter to its view. Unrecognised values get the
// generic message.
func Lookup(kind string) View {
	switch Kind(kind) {
	case Login:
		return View{Title: "Вход выполнен успешно!", Subtitle: welcomeBack}
	case Signup:
		return View{Title: "Регистрация прошла успешно!", Subtitle: accountIsReady}
	default:
		return View{Title: genericTitle, Subtitle: welcomeBack}
	}
}

// Path is the navigation target for kind.
func Path(kind Kind) string {
	return "/success?type=" + url.QueryEscape(string(kind))
}
