package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devink/campusconnect/api"
	"github.com/devink/campusconnect/internal/backend"
	"github.com/devink/campusconnect/internal/config"
	"github.com/devink/campusconnect/internal/directory"
	"github.com/devink/campusconnect/internal/feed"
	"github.com/devink/campusconnect/internal/identity"
	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/login"
	"github.com/devink/campusconnect/internal/mailer"
	"github.com/devink/campusconnect/internal/manager"
	"github.com/devink/campusconnect/internal/metrics"
	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/internal/session"
	"github.com/devink/campusconnect/internal/signup"
	"github.com/devink/campusconnect/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	logging.InfoLog("Starting CampusConnect server")

	secureDBFile(config.DBPath())

	work := manager.NewWorkManager()
	defer work.Close()

	client, err := backend.New(backend.Options{
		DBPath:         config.DBPath(),
		JWTSecret:      config.JWTSecret(),
		JWTIssuer:      config.JWTIssuer(),
		JWTTTL:         config.JWTExpiresIn(),
		GoogleClientID: config.GoogleClientID(),
		GoogleCertsURL: config.GoogleCertsURL(),
		NATSURL:        config.NATSURL(),
	}, work)
	if err != nil {
		return err
	}
	defer client.Close()

	m := metrics.New()

	universities := directory.DefaultUniversities()
	if path := config.UniversitiesFile(); path != "" {
		if universities, err = directory.LoadUniversities(path); err != nil {
			return err
		}
		logging.InfoLog("University table loaded from %s", path)
	}

	cities := directory.NewCityClient(config.DadataURL(), config.DadataAPIKey(),
		directory.WithQuery(config.CityLookupQuery()),
		directory.WithCount(config.CityLookupCount()),
		directory.WithFetchHook(func(src directory.Source) { m.CityLookup(string(src)) }))

	forms := signup.NewRegistry(signup.Deps{
		Accounts:      client.Identity,
		Profiles:      client.Docs,
		Cities:        cities,
		Universities:  universities,
		OnSignup:      welcomeHook(work),
		OnResult:      m.Signup,
		RedirectDelay: config.SignupRedirectDelay(),
	}, config.FormTTL(), work.SubmitLookup)
	defer forms.Close()

	gate := session.NewGate(client.Docs)
	stopWatch := gate.Watch(client.Identity, func(st identity.AuthState, d session.Decision) {
		if d.Redirect != "" {
			logging.DebugLog("Session ended uid=[%s]", utils.HashID(st.UID))
			return
		}
		logging.DebugLog("Session started uid=[%s]", utils.HashID(st.UID))
	})
	defer stopWatch()

	hub := feed.NewHub(m.FeedWatchers)
	events := feed.New(client.Docs, feed.ReplaceSnapshot, feed.WithHub(hub))
	events.Start()
	defer events.Stop()

	router := api.NewRouter(api.Deps{
		Forms:          forms,
		Login:          login.New(client.Identity, login.WithRedirectDelay(config.LoginRedirectDelay()), login.WithResultHook(m.Login)),
		Gate:           gate,
		Identity:       client.Identity,
		Tokens:         client.Tokens,
		Feed:           events,
		Hub:            hub,
		Cities:         cities,
		Universities:   universities,
		Metrics:        m,
		AllowedOrigins: config.CORSAllowedOrigins(),
		MaxBodyBytes:   config.MaxRequestBodyBytes(),
	})

	srv := &http.Server{
		Addr:              ":" + config.Port(),
		Handler:           router,
		ReadTimeout:       config.ServerReadTimeout(),
		ReadHeaderTimeout: config.ServerReadHeaderTimeout(),
		WriteTimeout:      config.ServerWriteTimeout(),
		IdleTimeout:       config.ServerIdleTimeout(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.InfoLog("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// welcomeHook queues a welcome mail on the smtp pool when a relay is configured.
// A configured DKIM key is checked against DNS once on the lookup pool.
func welcomeHook(work *manager.WorkManager) func(context.Context, string, models.AccountProfile) {
	m := newMailer()
	if m == nil {
		return nil
	}
	logging.InfoLog("Welcome mail enabled via %s", config.SMTPAddr())

	if err := work.SubmitLookup(func(ctx context.Context) {
		if res, err := m.CheckSigning(nil); err != nil {
			logging.WarnLog("DKIM self check %s: %v", res, err)
		}
	}); err != nil {
		logging.WarnLog("DKIM self check not queued: %v", err)
	}

	return func(_ context.Context, uid string, p models.AccountProfile) {
		if p.Email == "" {
			return
		}
		if err := work.SubmitSMTP(func(ctx context.Context) {
			_ = m.Welcome(ctx, p.Email, p.FirstName)
		}); err != nil {
			logging.WarnLog("Welcome mail not queued uid=[%s]: %v", utils.HashID(uid), err)
		}
	}
}

// newMailer builds the mailer from config; nil when no relay is configured.
func newMailer() *mailer.Mailer {
	addr := config.SMTPAddr()
	if addr == "" {
		return nil
	}

	cfg := mailer.Config{
		Addr:         addr,
		Username:     config.SMTPUsername(),
		Password:     config.SMTPPassword(),
		From:         config.MailFrom(),
		DKIMDomain:   config.DKIMDomain(),
		DKIMSelector: config.DKIMSelector(),
	}
	if path := config.DKIMKeyFile(); path != "" {
		key, err := mailer.LoadDKIMKey(path)
		if err != nil {
			logging.FatalLog("DKIM key: %v", err)
		}
		cfg.DKIMKey = key
	}
	return mailer.New(cfg)
}

// secureDBFile restricts an existing database file to its owner.
func secureDBFile(path string) {
	if path == ":memory:" {
		return
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Chmod(path, 0600); err != nil {
			logging.ErrorLog("Failed to set restrictive permissions on %s: %v", path, err)
		} else {
			logging.DebugLog("Permissions on %s set to 0600", path)
		}
	}
}
