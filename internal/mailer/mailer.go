// Package mailer sends the welcome message after a signup, optionally DKIM
// signed, through an SMTP relay.
package mailer

import (
	"bytes"
	"context"
	"crypto"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/utils"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
)

const welcomeSubject = "Добро пожаловать в CampusConnect"

// Config describes the relay and the optional DKIM identity.
type Config struct {
	Addr     string
	Username string
	Password string
	From     string

	DKIMDomain   string
	DKIMSelector string
	DKIMKey      crypto.Signer
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

// Mailer composes and delivers messages.
type Mailer struct {
	cfg  Config
	send SendFunc
	now  func() time.Time
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithSendFunc replaces smtp.SendMail.
func WithSendFunc(fn SendFunc) Option { return func(m *Mailer) { m.send = fn } }

// WithClock overrides the Date header clock.
func WithClock(now func() time.Time) Option { return func(m *Mailer) { m.now = now } }

// New creates a mailer for cfg.
func New(cfg Config, opts ...Option) *Mailer {
	m := &Mailer{cfg: cfg, send: smtp.SendMail, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Welcome greets a freshly registered user.
func (m *Mailer) Welcome(ctx context.Context, to, firstName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	greeting := "Здравствуйте!"
	if firstName = strings.TrimSpace(firstName); firstName != "" {
		greeting = "Здравствуйте, " + firstName + "!"
	}
	body := greeting + "\r\n\r\n" +
		"Ваш аккаунт CampusConnect готов к использованию.\r\n" +
		"Публикуйте мероприятия своего вуза и следите за событиями в ленте.\r\n"

	msg, err := m.compose(to, welcomeSubject, body)
	if err != nil {
		return err
	}

	var auth sasl.Client
	if m.cfg.Username != "" {
		auth = sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)
	}
	if err := m.send(m.cfg.Addr, auth, m.cfg.From, []string{to}, bytes.NewReader(msg)); err != nil {
		logging.WarnLog("Welcome mail to [%s] failed: %v", utils.HashEmail(to), err)
		return fmt.Errorf("send welcome mail: %w", err)
	}
	logging.InfoLog("Welcome mail sent to [%s]", utils.HashEmail(to))
	return nil
}

func (m *Mailer) compose(to, subject, body string) ([]byte, error) {
	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }

	domain := m.cfg.DKIMDomain
	if domain == "" {
		domain = "campusconnect.local"
	}
	header("From", m.cfg.From)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", m.now().Format(time.RFC1123Z))
	header("Message-ID", "<"+uuid.NewString()+"@"+domain+">")
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=utf-8")
	header("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")
	buf.WriteString(body)

	if m.cfg.DKIMKey == nil || m.cfg.DKIMDomain == "" {
		return buf.Bytes(), nil
	}
	return Sign(buf.Bytes(), m.cfg.DKIMDomain, m.cfg.DKIMSelector, m.cfg.DKIMKey)
}

// CheckSigning signs a sample message and verifies it against the published
// selector record, catching a key that does not match DNS before real mail
// goes out. lookupTXT nil uses DNS. Without a DKIM key the result is DKIMNone.
func (m *Mailer) CheckSigning(lookupTXT func(domain string) ([]string, error)) (DKIMResult, error) {
	if m.cfg.DKIMKey == nil || m.cfg.DKIMDomain == "" {
		return DKIMNone, nil
	}
	msg, err := m.compose(m.cfg.From, "DKIM check", "DKIM check\r\n")
	if err != nil {
		return DKIMTempError, err
	}
	res, err := CheckDKIM(msg, lookupTXT)
	logging.InfoLog("DKIM self check for %s._domainkey.%s: %s", m.cfg.DKIMSelector, m.cfg.DKIMDomain, res)
	return res, err
}
