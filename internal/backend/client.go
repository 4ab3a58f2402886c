// Package backend wires the identity provider, the document store and the
// session tokens into one explicitly constructed client.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/devink/campusconnect/internal/identity"
	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/manager"
	"github.com/devink/campusconnect/store"
	"github.com/nats-io/nats.go"
)

// Options configure New.
type Options struct {
	DBPath string

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	// GoogleClientID enables federated sign-in when set.
	GoogleClientID string
	GoogleCertsURL string

	// NATSURL enables cross-instance change notifications when set.
	NATSURL string

	// BcryptCost overrides the default cost; zero keeps it.
	BcryptCost int
}

// Client owns every backend resource. Close releases them.
type Client struct {
	Identity *identity.LocalProvider
	Docs     store.Documents
	Tokens   *identity.TokenIssuer

	db         *sql.DB
	raw        *store.SQLiteStore
	nc         *nats.Conn
	stopBridge func()
}

// New opens the database and builds the client. Work, if non-nil, runs
// password hashing and store access on its pools.
func New(opts Options, work *manager.WorkManager) (*Client, error) {
	if opts.JWTSecret == "" {
		return nil, errors.New("backend: JWT secret is required")
	}

	db, err := store.OpenDB(opts.DBPath)
	if err != nil {
		return nil, err
	}

	raw, err := store.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	var popts []identity.LocalOption
	if work != nil {
		popts = append(popts, identity.WithCryptoRunner(work))
	}
	if opts.BcryptCost > 0 {
		popts = append(popts, identity.WithBcryptCost(opts.BcryptCost))
	}
	if opts.GoogleClientID != "" {
		v := identity.NewGoogleVerifier(opts.GoogleClientID, opts.GoogleCertsURL, &http.Client{Timeout: 10 * time.Second})
		popts = append(popts, identity.WithFederated(v))
		logging.InfoLog("Federated sign-in enabled")
	}
	provider, err := identity.NewLocalProvider(db, popts...)
	if err != nil {
		db.Close()
		return nil, err
	}

	c := &Client{
		Identity: provider,
		Docs:     raw,
		Tokens:   identity.NewTokenIssuer(opts.JWTSecret, opts.JWTIssuer, opts.JWTTTL),
		db:       db,
		raw:      raw,
	}
	if work != nil {
		c.Docs = &pooledDocs{Documents: raw, work: work}
	}

	if opts.NATSURL != "" {
		if err := c.connectNATS(opts.NATSURL); err != nil {
			c.Close()
			return nil, err
		}
	}

	logging.InfoLog("Backend ready (db=%s)", opts.DBPath)
	return c, nil
}

func (c *Client) connectNATS(url string) error {
	nc, err := nats.Connect(url,
		nats.Name("campusconnect"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.WarnLog("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.InfoLog("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("connect nats %s: %w", url, err)
	}
	stop, err := store.BridgeNATS(nc, c.raw)
	if err != nil {
		nc.Close()
		return err
	}
	c.nc = nc
	c.stopBridge = stop
	return nil
}

// Close stops the NATS bridge and closes the database.
func (c *Client) Close() error {
	if c.stopBridge != nil {
		c.stopBridge()
	}
	if c.nc != nil {
		if err := c.nc.Drain(); err != nil {
			logging.WarnLog("NATS drain failed: %v", err)
		}
	}
	return c.db.Close()
}

// pooledDocs runs document reads and writes on the db pool. Results travel
// back over a channel since the task can outlive a caller that gave up.
type pooledDocs struct {
	store.Documents
	work *manager.WorkManager
}

func (p *pooledDocs) Set(ctx context.Context, collection, id string, fields store.Fields) error {
	return p.work.RunDB(ctx, func(ctx context.Context) error {
		return p.Documents.Set(ctx, collection, id, fields)
	})
}

func (p *pooledDocs) Get(ctx context.Context, collection, id string) (store.Document, error) {
	res := make(chan store.Document, 1)
	err := p.work.RunDB(ctx, func(ctx context.Context) error {
		doc, err := p.Documents.Get(ctx, collection, id)
		res <- doc
		return err
	})
	if err != nil {
		return store.Document{}, err
	}
	return <-res, nil
}

func (p *pooledDocs) Add(ctx context.Context, collection string, fields store.Fields) (string, error) {
	res := make(chan string, 1)
	err := p.work.RunDB(ctx, func(ctx context.Context) error {
		id, err := p.Documents.Add(ctx, collection, fields)
		res <- id
		return err
	})
	if err != nil {
		return "", err
	}
	return <-res, nil
}
