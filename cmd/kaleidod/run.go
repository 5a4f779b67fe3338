package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/kaleidoswap/desktop-app/migrations"

	"github.com/kaleidoswap/desktop-app/internal/account"
	"github.com/kaleidoswap/desktop-app/internal/api"
	"github.com/kaleidoswap/desktop-app/internal/auth"
	"github.com/kaleidoswap/desktop-app/internal/channelorder"
	"github.com/kaleidoswap/desktop-app/internal/infrastructure/config"
	"github.com/kaleidoswap/desktop-app/internal/infrastructure/database"
	"github.com/kaleidoswap/desktop-app/internal/infrastructure/influxdb"
	"github.com/kaleidoswap/desktop-app/internal/infrastructure/logging"
	"github.com/kaleidoswap/desktop-app/internal/infrastructure/mqtt"
	"github.com/kaleidoswap/desktop-app/internal/logcache"
	"github.com/kaleidoswap/desktop-app/internal/node"
	"github.com/kaleidoswap/desktop-app/internal/shutdown"
)

// logVolumeInterval is how often log cache size is sent to InfluxDB.
const logVolumeInterval = 30 * time.Second

// run brings up the daemon and blocks until ctx is cancelled. On the way
// out it runs the close sequence so no node process outlives the daemon.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting kaleidod",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version).With("app_id", cfg.App.ID)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	mqttClient, mirror := connectMQTT(cfg.MQTT, log)
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	influxClient := connectInfluxDB(cfg.InfluxDB, log)
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	hub := api.NewHub(cfg.WebSocket, log)

	cache := logcache.New(cfg.Node.LogCapacity)
	supervisor := node.NewSupervisor(node.Config{
		Binary:         cfg.Node.Binary,
		DataRoot:       cfg.Node.DataRoot,
		Env:            cfg.Node.Env,
		OnStatusChange: statusFanout(hub, mirror, influxClient, log),
	}, cache)
	supervisor.SetLogger(log.Component("node"))
	// Backstop for an exit path that skipped the close sequence.
	defer func() {
		if killErr := supervisor.ForceKill(); killErr != nil {
			log.Error("killing node on exit", "error", killErr)
		}
	}()

	emitters := []shutdown.Emitter{hub}
	if mirror != nil {
		emitters = append(emitters, mirror)
	}
	coordinator := shutdown.New(supervisor, shutdown.Multi(emitters...))
	coordinator.SetLogger(log.Component("shutdown"))

	issuer, err := newIssuer(cfg, log)
	if err != nil {
		return err
	}
	if tokenErr := writeSessionToken(issuer, cfg.Security.SessionTokenFile); tokenErr != nil {
		return tokenErr
	}
	defer func() {
		if rmErr := os.Remove(cfg.Security.SessionTokenFile); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn("removing session token file", "error", rmErr)
		}
	}()
	log.Info("session token written", "path", cfg.Security.SessionTokenFile)

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Supervisor:  supervisor,
		Coordinator: coordinator,
		Accounts:    account.NewSQLiteRepository(db.DB, cfg.Node.DataRoot),
		Orders:      channelorder.NewSQLiteRepository(db.DB),
		Selection:   &account.Selection{},
		Issuer:      issuer,
		Tickets:     auth.NewTicketStore(auth.DefaultTicketTTL),
		Hub:         hub,
		DB:          db,
		MQTT:        mqttClient,
		Influx:      influxClient,
		Version:     version,
		OnCloseComplete: func(res shutdown.Result) {
			recordShutdown(influxClient, res)
		},
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete", "address", server.Addr())

	g, gctx := errgroup.WithContext(ctx)
	if influxClient != nil {
		g.Go(func() error {
			reportLogVolume(gctx, influxClient, supervisor)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, stopping node")
		res := coordinator.Run(func() {
			if emitErr := hub.Emit(api.EventCloseWindow, ""); emitErr != nil {
				log.Debug("close-window not delivered", "error", emitErr)
			}
		})
		if res.InProgress {
			log.Info("close sequence already running; node will be killed on exit")
		} else {
			recordShutdown(influxClient, res)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("kaleidod stopped")
	return nil
}

// connectMQTT connects the optional event mirror. A broker that cannot be
// reached is logged and skipped; the daemon works without it.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, *mqtt.EventMirror) {
	if !cfg.Enabled {
		log.Info("MQTT mirror disabled")
		return nil, nil
	}
	client, err := mqtt.Connect(cfg)
	if err != nil {
		log.Warn("MQTT unavailable, continuing without event mirror", "error", err)
		return nil, nil
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() { log.Info("MQTT reconnected") })
	client.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)
	// #nosec G115 -- qos validated to 0..2 by config
	return client, mqtt.NewEventMirror(client, client.Topics(), byte(cfg.QoS))
}

// connectInfluxDB connects optional telemetry, skipping it on failure.
func connectInfluxDB(cfg config.InfluxDBConfig, log *logging.Logger) *influxdb.Client {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil
	}
	client, err := influxdb.Connect(cfg)
	if err != nil {
		log.Warn("InfluxDB unavailable, continuing without telemetry", "error", err)
		return nil
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	return client
}

// statusFanout delivers node transitions to the shell, the broker and
// telemetry. It runs outside the supervisor lock.
func statusFanout(hub *api.Hub, mirror *mqtt.EventMirror, influx *influxdb.Client, log *logging.Logger) func(node.Transition) {
	return func(t node.Transition) {
		log.Info("node status changed",
			"from", t.From,
			"to", t.To,
			"account", t.Account,
			"seq", t.Seq,
		)
		hub.Broadcast(api.EventNodeStatus, t)
		if mirror != nil {
			if err := mirror.PublishNodeStatus(t); err != nil {
				log.Warn("publishing node status", "error", err)
			}
		}
		influx.WriteNodeTransition(influxdb.NodeTransition{
			From:    string(t.From),
			To:      string(t.To),
			Account: t.Account,
			PID:     t.PID,
			Error:   t.Error,
			At:      t.At,
		})
	}
}

// newIssuer builds the session token issuer. Without a configured secret
// a random one is used, so tokens only live as long as this process.
func newIssuer(cfg *config.Config, log *logging.Logger) (*auth.Issuer, error) {
	secret := cfg.Security.JWT.Secret
	if secret == "" {
		var err error
		if secret, err = auth.GenerateSecret(); err != nil {
			return nil, fmt.Errorf("generating session secret: %w", err)
		}
		log.Debug("using per-process session secret")
	}
	issuer, err := auth.NewIssuer(secret, cfg.GetAccessTokenTTL())
	if err != nil {
		return nil, fmt.Errorf("creating token issuer: %w", err)
	}
	return issuer, nil
}

// writeSessionToken mints the shell's bearer token and stores it for the
// shell to pick up.
func writeSessionToken(issuer *auth.Issuer, path string) error {
	token, err := issuer.Issue(auth.SubjectShell)
	if err != nil {
		return fmt.Errorf("issuing session token: %w", err)
	}
	if err := auth.WriteTokenFile(path, token); err != nil {
		return fmt.Errorf("writing session token: %w", err)
	}
	return nil
}

func recordShutdown(influx *influxdb.Client, res shutdown.Result) {
	if res.FastPath {
		return
	}
	influx.WriteShutdownSession(influxdb.ShutdownSession{
		SessionID:   res.SessionID,
		Attempts:    res.Attempts,
		ForceKilled: res.ForceKilled,
		Elapsed:     res.Elapsed,
		Failed:      res.Err != nil,
	})
}

// reportLogVolume periodically records how full the log cache is.
func reportLogVolume(ctx context.Context, influx *influxdb.Client, supervisor *node.Supervisor) {
	ticker := time.NewTicker(logVolumeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache := supervisor.Cache()
			account, _ := supervisor.CurrentAccount()
			influx.WriteLogVolume(account, cache.Len(), cache.Cap())
		}
	}
}

func healthCheck(ctx context.Context, db *database.DB, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
