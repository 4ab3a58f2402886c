package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the provider's own floor, independent of the signup
// form's password policy.
const MinPasswordLength = 6

const accountsSchema = `
	CREATE TABLE IF NOT EXISTS accounts (
		uid TEXT PRIMARY KEY NOT NULL CHECK(uid <> ''),
		email TEXT NOT NULL UNIQUE CHECK(email <> ''),
		password_hash TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		photo_url TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);`

const (
	providerPassword = "password"
	providerGoogle   = "google.com"
)

var validate = validator.New()

// CryptoRunner offloads CPU heavy work; *manager.WorkManager satisfies it.
type CryptoRunner interface {
	RunCrypto(ctx context.Context, fn func(ctx context.Context) error) error
}

type inline struct{}

func (inline) RunCrypto(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// LocalProvider stores accounts in SQLite with bcrypt password hashes.
type LocalProvider struct {
	db        *sql.DB
	federated FederatedVerifier
	crypto    CryptoRunner
	cost      int
	now       func() time.Time
	listeners Listeners
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithFederated enables SignInFederated.
func WithFederated(v FederatedVerifier) LocalOption { return func(p *LocalProvider) { p.federated = v } }

// WithCryptoRunner moves bcrypt work onto a worker pool.
func WithCryptoRunner(r CryptoRunner) LocalOption { return func(p *LocalProvider) { p.crypto = r } }

// WithBcryptCost overrides bcrypt.DefaultCost (tests use bcrypt.MinCost).
func WithBcryptCost(cost int) LocalOption { return func(p *LocalProvider) { p.cost = cost } }

// NewLocalProvider creates the accounts table if needed.
func NewLocalProvider(db *sql.DB, opts ...LocalOption) (*LocalProvider, error) {
	if _, err := db.Exec(accountsSchema); err != nil {
		return nil, fmt.Errorf("create accounts schema: %w", err)
	}
	p := &LocalProvider{
		db:     db,
		crypto: inline{},
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount registers a password account and signs it in.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (Identity, error) {
	email = normalizeEmail(email)
	emailHash := utils.HashEmail(email)

	if err := validate.Var(email, "required,email"); err != nil {
		return Identity{}, newError(CodeInvalidEmail, "the email address is badly formatted")
	}
	if len(password) < MinPasswordLength {
		return Identity{}, newError(CodeWeakPassword, fmt.Sprintf("password should be at least %d characters", MinPasswordLength))
	}
	if _, found, err := p.byEmail(ctx, email); err != nil {
		return Identity{}, err
	} else if found {
		logging.WarnLog("Account creation failed: email in use [%s]", emailHash)
		return Identity{}, newError(CodeEmailAlreadyInUse, "the email address is already in use by another account")
	}

	var hash []byte
	if err := p.crypto.RunCrypto(ctx, func(ctx context.Context) error {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), p.cost)
		return err
	}); err != nil {
		logging.ErrorLog("Account creation failed: hashing [%s]: %v", emailHash, err)
		return Identity{}, newError(CodeInternal, "could not secure password: "+err.Error())
	}

	ident := Identity{UID: uuid.NewString(), Email: email}
	if err := p.insert(ctx, ident, string(hash), providerPassword); err != nil {
		return Identity{}, err
	}

	logging.InfoLog("Account created [%s] uid=[%s]", emailHash, utils.HashID(ident.UID))
	p.listeners.Emit(AuthState{UID: ident.UID, User: &ident})
	return ident, nil
}

// SignIn checks an email/password pair.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = normalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return Identity{}, newError(CodeInvalidEmail, "the email address is badly formatted")
	}

	acct, found, err := p.byEmail(ctx, email)
	if err != nil {
		return Identity{}, err
	}
	if !found {
		return Identity{}, newError(CodeUserNotFound, "there is no user record corresponding to this identifier")
	}
	if acct.passwordHash == "" {
		return Identity{}, newError(CodeWrongPassword, "this account signs in with "+acct.provider)
	}

	if err := p.crypto.RunCrypto(ctx, func(ctx context.Context) error {
		return bcrypt.CompareHashAndPassword([]byte(acct.passwordHash), []byte(password))
	}); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			logging.WarnLog("Sign-in failed: wrong password [%s]", utils.HashEmail(email))
			return Identity{}, newError(CodeWrongPassword, "the password is invalid")
		}
		return Identity{}, newError(CodeInternal, "could not check password: "+err.Error())
	}

	p.listeners.Emit(AuthState{UID: acct.UID, User: &acct.Identity})
	return acct.Identity, nil
}

// SignInFederated verifies a Google ID token, creating the account on first use.
func (p *LocalProvider) SignInFederated(ctx context.Context, credential string) (Identity, error) {
	if p.federated == nil {
		return Identity{}, newError(CodeOperationNotAllowed, "federated sign-in is not enabled")
	}
	claims, err := p.federated.Verify(ctx, credential)
	if err != nil {
		return Identity{}, newError(CodeInvalidCredential, "federated credential rejected: "+err.Error())
	}
	email := normalizeEmail(claims.Email)
	if err := validate.Var(email, "required,email"); err != nil {
		return Identity{}, newError(CodeInvalidEmail, "federated credential has no usable email")
	}

	acct, found, err := p.byEmail(ctx, email)
	if err != nil {
		return Identity{}, err
	}
	ident := acct.Identity
	if !found {
		ident = Identity{
			UID:         uuid.NewString(),
			Email:       email,
			DisplayName: claims.Name,
			PhotoURL:    claims.Picture,
		}
		if err := p.insert(ctx, ident, "", providerGoogle); err != nil {
			return Identity{}, err
		}
		logging.InfoLog("Federated account created [%s]", utils.HashEmail(email))
	} else {
		if ident.DisplayName == "" {
			ident.DisplayName = claims.Name
		}
		if ident.PhotoURL == "" {
			ident.PhotoURL = claims.Picture
		}
	}

	p.listeners.Emit(AuthState{UID: ident.UID, User: &ident})
	return ident, nil
}

// SignOut announces that uid's session ended.
func (p *LocalProvider) SignOut(ctx context.Context, uid string) error {
	logging.DebugLog("Sign-out uid=[%s]", utils.HashID(uid))
	p.listeners.Emit(AuthState{UID: uid})
	return nil
}

// User looks an identity up by uid.
func (p *LocalProvider) User(ctx context.Context, uid string) (Identity, error) {
	acct, err := p.scan(p.db.QueryRowContext(ctx, `
		SELECT uid, email, password_hash, display_name, photo_url, provider
		FROM accounts WHERE uid = ?`, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, newError(CodeUserNotFound, "there is no user record corresponding to this identifier")
		}
		return Identity{}, newError(CodeInternal, err.Error())
	}
	return acct.Identity, nil
}

// OnAuthStateChanged registers fn for sign-in and sign-out events.
func (p *LocalProvider) OnAuthStateChanged(fn func(AuthState)) func() {
	return p.listeners.Add(fn)
}

type account struct {
	Identity
	passwordHash string
	provider     string
}

func (p *LocalProvider) scan(row *sql.Row) (account, error) {
	var a account
	err := row.Scan(&a.UID, &a.Email, &a.passwordHash, &a.DisplayName, &a.PhotoURL, &a.provider)
	return a, err
}

func (p *LocalProvider) byEmail(ctx context.Context, email string) (account, bool, error) {
	a, err := p.scan(p.db.QueryRowContext(ctx, `
		SELECT uid, email, password_hash, display_name, photo_url, provider
		FROM accounts WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account{}, false, nil
		}
		logging.ErrorLog("identity.byEmail error: %v", err)
		return account{}, false, newError(CodeInternal, err.Error())
	}
	return a, true, nil
}

func (p *LocalProvider) insert(ctx context.Context, ident Identity, hash, provider string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO accounts (uid, email, password_hash, display_name, photo_url, provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ident.UID, ident.Email, hash, ident.DisplayName, ident.PhotoURL, provider, p.now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return newError(CodeEmailAlreadyInUse, "the email address is already in use by another account")
		}
		logging.ErrorLog("identity.insert error: %v", err)
		return newError(CodeInternal, err.Error())
	}
	return nil
}
