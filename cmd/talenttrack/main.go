package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pbaranSii/TalentTrack/internal/auth"
	"github.com/pbaranSii/TalentTrack/internal/config"
	"github.com/pbaranSii/TalentTrack/internal/gateway"
	"github.com/pbaranSii/TalentTrack/internal/localdb"
	"github.com/pbaranSii/TalentTrack/internal/logging"
	"github.com/pbaranSii/TalentTrack/internal/outbox"
	"github.com/pbaranSii/TalentTrack/internal/repo"
	"github.com/pbaranSii/TalentTrack/internal/server"
	"github.com/pbaranSii/TalentTrack/internal/storage"
	"github.com/pbaranSii/TalentTrack/internal/syncer"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "talenttrack",
		Short: "Local-first client for the TalentTrack scouting platform",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local-first API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Flush the outbox and refresh every table once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context())
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the local store, keeping queued operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset()
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(serveCmd, syncCmd, resetCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("api-base-url", defaults.GetString("api.base_url"), "Remote API base URL")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("session-cookie-name", defaults.GetString("session.cookie_name"), "Session cookie name")
	cmd.PersistentFlags().String("session-signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "api.base_url", "api-base-url")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "session.cookie_name", "session-cookie-name")
	bindFlag(cmd, "session.signing_secret", "session-signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return err
		}
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// app holds everything a command needs after bootstrap.
type app struct {
	config   config.AppConfig
	logger   *zap.Logger
	db       *gorm.DB
	store    *localdb.Store
	queue    *outbox.Queue
	syncer   *syncer.Syncer
	handler  http.Handler
	sessions *auth.SessionValidator
}

func bootstrap() (*app, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := storage.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	slots, err := storage.NewSQLiteSlots(db, time.Now)
	if err != nil {
		return nil, err
	}

	store, err := localdb.NewStore(localdb.StoreConfig{
		Slots:  slots,
		Clock:  time.Now,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	queue, err := outbox.NewQueue(outbox.QueueConfig{
		Slots:      slots,
		Clock:      time.Now,
		IDProvider: outbox.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	client, err := gateway.NewClient(gateway.ClientConfig{
		BaseURL: appConfig.APIBaseURL,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	repoConfig := repo.Config{
		Store:      store,
		Outbox:     queue,
		Gateway:    client,
		Clock:      time.Now,
		IDProvider: repo.NewLocalIDProvider(),
		Logger:     logger,
	}

	players, err := repo.NewPlayers(repoConfig)
	if err != nil {
		return nil, err
	}
	matches, err := repo.NewMatches(repoConfig)
	if err != nil {
		return nil, err
	}
	observations, err := repo.NewObservations(repoConfig)
	if err != nil {
		return nil, err
	}
	invitations, err := repo.NewInvitations(repoConfig)
	if err != nil {
		return nil, err
	}
	dictionaries, err := repo.NewDictionaries(repoConfig)
	if err != nil {
		return nil, err
	}
	clubs, err := repo.NewClubs(repoConfig)
	if err != nil {
		return nil, err
	}
	teams, err := repo.NewTeams(repoConfig)
	if err != nil {
		return nil, err
	}
	persons, err := repo.NewPersons(repoConfig)
	if err != nil {
		return nil, err
	}

	dictionaries.EnsureSeeded()

	sync, err := syncer.New(syncer.Config{
		Outbox:       queue,
		Players:      players,
		Matches:      matches,
		Observations: observations,
		Invitations:  invitations,
		Dictionaries: dictionaries,
		Clubs:        clubs,
		Teams:        teams,
		Persons:      persons,
		Gateway:      client,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	var sessions *auth.SessionValidator
	if appConfig.SessionSigningSecret != "" {
		sessions, err = auth.NewSessionValidator(auth.SessionValidatorConfig{
			SigningSecret: []byte(appConfig.SessionSigningSecret),
			CookieName:    appConfig.SessionCookieName,
		})
		if err != nil {
			return nil, err
		}
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Store:        store,
		Outbox:       queue,
		Players:      players,
		Matches:      matches,
		Observations: observations,
		Invitations:  invitations,
		Dictionaries: dictionaries,
		Clubs:        clubs,
		Teams:        teams,
		Persons:      persons,
		Syncer:       sync,
		Sessions:     sessions,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		config:   appConfig,
		logger:   logger,
		db:       db,
		store:    store,
		queue:    queue,
		syncer:   sync,
		handler:  handler,
		sessions: sessions,
	}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close() //nolint:errcheck
	}
	a.logger.Sync() //nolint:errcheck
}

func runServe(ctx context.Context) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}
	defer application.close()

	httpServer := &http.Server{
		Addr:    application.config.HTTPAddress,
		Handler: application.handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drain whatever queued up while the process was down, then pull fresh
	// snapshots. Failures are logged and retried on the next explicit sync.
	go func() {
		result := application.syncer.Flush(signalCtx)
		if result.Failed > 0 {
			application.logger.Warn("startup flush left operations queued",
				zap.Int("failed", result.Failed))
		}
		if failures := application.syncer.RefreshAll(signalCtx); len(failures) > 0 {
			application.logger.Warn("startup refresh incomplete",
				zap.Int("failing_tables", len(failures)))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		application.logger.Info("server starting",
			zap.String("address", application.config.HTTPAddress),
			zap.String("api_base_url", application.config.APIBaseURL))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runSync(ctx context.Context) error {
	application, err := bootstrap()
	if err != nil {
		return err
	}
	defer application.close()

	result := application.syncer.Flush(ctx)
	fmt.Printf("outbox: attempted=%d succeeded=%d failed=%d\n",
		result.Attempted, result.Succeeded, result.Failed)

	failures := application.syncer.RefreshAll(ctx)
	if len(failures) > 0 {
		for table, message := range failures {
			fmt.Printf("refresh failed: %s: %s\n", table, message)
		}
		return fmt.Errorf("refresh finished with %d failing tables", len(failures))
	}
	fmt.Println("refresh: ok")
	return nil
}

func runReset() error {
	application, err := bootstrap()
	if err != nil {
		return err
	}
	defer application.close()

	if err := application.store.Reset(); err != nil {
		return err
	}
	fmt.Println("local store reset")
	return nil
}
