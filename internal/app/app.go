// Package app boots the server: configuration, database, services, routes,
// and the background scheduler.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/subtrack-hq/subtrack/internal/bulkimport"
	"github.com/subtrack-hq/subtrack/internal/config"
	"github.com/subtrack-hq/subtrack/internal/db"
	"github.com/subtrack-hq/subtrack/internal/http/api/admin"
	"github.com/subtrack-hq/subtrack/internal/http/api/front"
	"github.com/subtrack-hq/subtrack/internal/notify"
	"github.com/subtrack-hq/subtrack/internal/ratelimit"
	"github.com/subtrack-hq/subtrack/internal/rates"
	"github.com/subtrack-hq/subtrack/internal/requests"
	"github.com/subtrack-hq/subtrack/internal/scheduler"
	"github.com/subtrack-hq/subtrack/internal/vault"
)

// shutdownTimeout bounds graceful drain on exit.
const shutdownTimeout = 15 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the API server with database-backed components and runs
// until the context is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	serverCfg, errServerCfg := config.LoadServerConfig(configPath)
	if errServerCfg != nil {
		return errServerCfg
	}
	if strings.TrimSpace(serverCfg.JWT.Secret) == "" {
		return errors.New("missing jwt secret (set `jwt.secret` in config file or JWT_SECRET)")
	}
	if strings.TrimSpace(serverCfg.VaultKey) == "" {
		return config.ErrMissingVaultKey
	}

	// Fail fast on a short vault key before anything touches the database.
	cipher, errCipher := vault.NewCipher(serverCfg.VaultKey)
	if errCipher != nil {
		return errCipher
	}

	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errAdmin := EnsureAdmin(conn); errAdmin != nil {
		return errAdmin
	}

	sender := notify.NewSender(serverCfg.SMTP)
	limiter := ratelimit.NewManager(conn, serverCfg.RateLimit, nil, nil)
	ratesService := rates.NewService(conn, serverCfg.Rates, nil, nil)
	vaultService := vault.NewService(conn, cipher, nil)
	requestService := requests.NewService(conn, limiter, sender, serverCfg.SMTP.AdminTo, nil)
	importer := bulkimport.NewImporter(conn, nil)

	engine := gin.New()
	engine.Use(gin.Recovery())
	admin.RegisterAdminRoutes(engine, conn, serverCfg.JWT, admin.Services{
		Requests: requestService,
		Vault:    vaultService,
		Rates:    ratesService,
		Importer: importer,
	})
	front.RegisterFrontRoutes(engine, conn, requestService)

	sched := scheduler.New(conn, sender, ratesService, nil)
	if errSched := sched.Start(); errSched != nil {
		return errSched
	}
	defer sched.Stop()

	port := serverCfg.Port
	if port <= 0 {
		port = defaultPort
	}
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", serverCfg.Host, port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}
