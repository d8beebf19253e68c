package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"prodline-server/internal/config"
	"prodline-server/internal/httpapi"
	"prodline-server/internal/logging"
	"prodline-server/internal/metrics"
	"prodline-server/internal/modules/parameters"
	"prodline-server/internal/modules/parameters/repository"
	"prodline-server/internal/modules/parameters/service"
	"prodline-server/internal/modules/parameters/views"
	"prodline-server/internal/mqtt"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbLogSQL", cfg.LogSQL,
		"mqttEnabled", cfg.MQTT.Enabled,
		"mqttBroker", cfg.MQTT.Broker,
		"mqttPort", cfg.MQTT.Port,
		"mqttTopic", cfg.MQTT.Topic,
		"historyMaxHours", cfg.Readings.MaxHours,
	)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()
	logger.Info("database connection successful", "driver", cfg.Driver)

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	m := metrics.New()
	opts := []service.Option{
		service.WithRecorder(m),
		service.WithLogger(logging.Component(logger, "parameters")),
	}

	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher = mqtt.NewPublisher(cfg.MQTT, logging.Component(logger, "mqtt"))
		// A broker that is down at startup does not block serving. The client
		// keeps retrying and publishes once the on-connect handler fires.
		connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
		if err := publisher.Connect(connectCtx); err != nil {
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
		connectCancel()
		opts = append(opts, service.WithPublisher(parameters.NewReadingPublisher(publisher)))
	}

	svc := newService(cfg, st.repository, opts...)
	if cfg.Readings.SeedOnStart {
		n, err := svc.Seed(ctx)
		if err != nil {
			return err
		}
		logger.Info("seeded on start", "rows", n)
	}

	mux := httpapi.NewMux(st.repository, m.Handler(), logger)
	parameters.RegisterFeature(mux, svc, logging.Component(logger, "http"))
	srv := httpapi.NewServer(cfg, mux, logger, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if publisher != nil {
			logger.Info("mqtt disconnecting")
			publisher.Disconnect()
		}
		logger.Info("http shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Migrate applies pending schema migrations and exits.
func Migrate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	st.close()
	logger.Info("migrations applied", "driver", cfg.Driver)
	return nil
}

// Seed replaces the stored readings with the configured synthetic history.
func Seed(ctx context.Context, cfg config.Config, logger *slog.Logger) (int, error) {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return 0, err
	}
	defer st.close()

	svc := newService(cfg, st.repository, service.WithLogger(logger))
	return svc.Seed(ctx)
}

func newService(cfg config.Config, repo repository.ParametersRepository, opts ...service.Option) *service.Service {
	return service.NewService(repo, serviceOptions(cfg.Readings), opts...)
}

func serviceOptions(r config.ReadingsConfig) service.Options {
	opts := service.DefaultOptions()
	opts.DefaultHours = r.DefaultHours
	opts.MaxHours = r.MaxHours
	opts.PerturbFraction = r.PerturbFraction
	opts.Tolerance = r.Tolerance
	opts.Seed.Count = r.SeedCount
	opts.Seed.Spacing = r.SeedSpacing
	return opts
}
