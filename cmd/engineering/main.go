package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bridgesim/stationcore/internal/engineering"
	"github.com/bridgesim/stationcore/internal/gateway"
	"github.com/bridgesim/stationcore/internal/roster"
	"github.com/bridgesim/stationcore/internal/ships"
	"github.com/bridgesim/stationcore/pkg/circuit"
	"github.com/bridgesim/stationcore/pkg/clock"
	"github.com/bridgesim/stationcore/pkg/relay"
)

type Config struct {
	Port      string
	RelayURL  string
	JWTSecret string
	ShipDB    string
	DroidPool int
}

func loadConfig() *Config {
	return &Config{
		Port:      getEnv("PORT", "8040"),
		RelayURL:  getEnv("RELAY_URL", "nats://localhost:4222"),
		JWTSecret: getEnv("JWT_SECRET", "dev-secret"),
		ShipDB:    getEnv("SHIP_DB", ""),
		DroidPool: getEnvInt("DROID_POOL", 10),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func main() {
	cfg := loadConfig()
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "engineering").Logger()

	relayClient, err := relay.Connect(relay.Config{
		URL:            cfg.RelayURL,
		Name:           "engineering-station",
		ReconnectWait:  time.Second,
		MaxReconnects:  60,
		ConnectTimeout: 10 * time.Second,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to relay")
	}
	defer relayClient.Close()

	shipDB := ships.NewRegistry()
	if cfg.ShipDB != "" {
		if err := shipDB.LoadFile(cfg.ShipDB); err != nil {
			log.Fatal().Err(err).Msg("failed to load ship database")
		}
	}

	engine := engineering.NewEngine(
		engineering.WithLogger(log.With().Str("component", "engine").Logger()),
		engineering.WithDroidPool(cfg.DroidPool),
	)

	var gw *gateway.Gateway
	crew := roster.New(func(members []roster.Member) {
		gw.BroadcastRoster(members)
		if err := relayClient.Publish(context.Background(), relay.SubjectRoster, members); err != nil {
			log.Warn().Err(err).Msg("failed to publish roster update")
		}
	})
	gw = gateway.New(gateway.Config{
		JWTSecret: cfg.JWTSecret,
		Logger:    log.With().Str("component", "gateway").Logger(),
	}, engine, crew, shipDB)

	// Snapshot fan-out: always to local WebSocket subscribers, and to the
	// relay behind a breaker so a dead relay fails fast.
	breaker := circuit.NewBreaker(circuit.Config{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		HalfOpenMax: 3,
		OnStateChange: func(from, to circuit.State) {
			log.Warn().Stringer("from", from).Stringer("to", to).Msg("relay breaker state change")
		},
	})
	engine.SetPublisher(func(snap engineering.Snapshot) {
		gw.BroadcastSnapshot(snap)
		err := breaker.Execute(context.Background(), func() error {
			return relayClient.Publish(context.Background(), relay.SubjectSnapshot, snap)
		})
		if err != nil && !errors.Is(err, circuit.ErrCircuitOpen) {
			log.Warn().Err(err).Msg("failed to publish snapshot to relay")
		}
	})

	// Remote stations and the GM console issue commands over the relay.
	err = relayClient.Subscribe(relay.SubjectCommands, func(msg *nats.Msg) {
		var cmd engineering.Command
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			log.Warn().Err(err).Msg("malformed relay command")
			return
		}
		if err := engine.Execute(cmd); err != nil {
			log.Warn().Str("command", cmd.Name).Err(err).Msg("relay command rejected")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to relay commands")
	}

	sched := clock.NewScheduler()
	engine.RegisterTicks(sched)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: gw.Handler(),
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		sched.Run(ctx)
		return nil
	})
	group.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("engineering station listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatal().Err(err).Msg("engineering station failed")
	}

	if err := relayClient.Drain(); err != nil {
		log.Warn().Err(err).Msg("relay drain failed")
	}
	log.Info().Msg("engineering station stopped")
}
