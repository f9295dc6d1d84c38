package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dracoqcca/eufyvac/internal/config"
	"github.com/dracoqcca/eufyvac/internal/core"
	"github.com/dracoqcca/eufyvac/internal/rate"
	"github.com/dracoqcca/eufyvac/internal/server"
	"github.com/dracoqcca/eufyvac/internal/session"
	"github.com/dracoqcca/eufyvac/plugins/eufy"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}

	var blobStore session.BlobStore
	if cfg.Blob != nil {
		store, err := session.NewS3Store(session.BlobConfig{
			Endpoint:      cfg.Blob.Endpoint,
			Bucket:        cfg.Blob.Bucket,
			Prefix:        cfg.Blob.Prefix,
			AccessKeyFile: cfg.Blob.AccessKeyFile,
			SecretKeyFile: cfg.Blob.SecretKeyFile,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("blob store")
		}
		blobStore = store
	}

	var compiled []core.Plugin
	var eufyPlugin eufy.Plugin
	if cfg.Eufy != nil {
		statePath := cfg.Eufy.StatePath
		if statePath == "" {
			statePath = session.TempStatePath("eufy")
		}
		sessions, err := session.NewManager(
			eufy.SessionDeclaration(statePath),
			session.Bootstrap{Email: cfg.Eufy.Email, PasswordFile: cfg.Eufy.PasswordFile},
			blobStore,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("eufy session")
		}
		eufyPlugin = eufy.NewPlugin(eufy.Config{
			Email:        cfg.Eufy.Email,
			PasswordFile: cfg.Eufy.PasswordFile,
			StatePath:    statePath,
			CountryCode:  cfg.Eufy.CountryCode,
			PollInterval: time.Duration(cfg.Eufy.PollIntervalSeconds) * time.Second,
			IPOverrides:  cfg.Eufy.DeviceIPOverrides,
		}, sessions)
		compiled = append(compiled, eufyPlugin)
	}

	plugins := core.FilterPlugins(compiled, config.EnabledPlugins(cfg), false)
	if err := core.ValidatePlugins(plugins); err != nil {
		log.Fatal().Err(err).Msg("validate plugins")
	}

	shared := append(session.MetricsCollectors(), rate.MetricsCollectors()...)
	metricsRegistry := core.MetricsRegistry(plugins, shared...)
	metricsRegistry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "eufyvac_build_info",
		Help: "Build information",
	}, func() float64 { return 1 }))

	if err := core.WriteDashboards(cfg.Core.DashboardDir, plugins); err != nil {
		log.Warn().Err(err).Msg("write dashboards")
	}

	registry := core.NewRegistryService(plugins)

	httpMux := http.NewServeMux()
	httpMux.HandleFunc("/health", server.HealthHandler)
	httpMux.Handle("/metrics", server.MetricsHandler(metricsRegistry))
	httpMux.Handle("/dashboards/", server.DashboardsHandler(core.DashboardsMap(plugins)))
	httpMux.Handle("/registry/plugins", server.RegistryHandler(registry))
	httpMux.Handle("/registry/plugins/", server.RegistryHandler(registry))
	for _, plugin := range plugins {
		plugin.RegisterHTTP(httpMux)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if client := eufyPlugin.Client(); client != nil {
		if cfg.MQTT != nil {
			publisher, err := eufy.NewPublisher(eufy.PublisherConfig{
				Host:        cfg.MQTT.Host,
				Port:        cfg.MQTT.Port,
				TLS:         cfg.MQTT.TLS,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
			})
			if err != nil {
				log.Warn().Err(err).Msg("mqtt publisher unavailable")
			} else {
				client.SetPublisher(publisher)
				defer publisher.Close()
			}
		}
		go func() {
			if err := client.Start(ctx); err != nil {
				log.Error().Err(err).Msg("eufy poller did not start")
			}
		}()
		defer client.Close()
	}

	grpcServer, err := server.NewGRPCServer(cfg.Core.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Core.GRPCAddr).Msg("grpc listen")
	}

	httpServer := server.NewHTTPServer(cfg.Core.HTTPAddr, httpMux)
	go func() {
		log.Info().Str("addr", cfg.Core.HTTPAddr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http serve")
		}
	}()
	go func() {
		log.Info().Str("addr", cfg.Core.GRPCAddr).Msg("grpc listening")
		if err := grpcServer.Serve(); err != nil {
			log.Fatal().Err(err).Msg("grpc serve")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Server.Shutdown(shutdownCtx)
	grpcServer.Server.GracefulStop()
}
