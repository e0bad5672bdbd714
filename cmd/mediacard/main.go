package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"media-player-card/internal/adapters/input/http"
	"media-player-card/internal/adapters/input/realtime"
	"media-player-card/internal/adapters/input/ssdp"
	"media-player-card/internal/adapters/output/homeassistant"
	"media-player-card/internal/adapters/output/metrics"
	"media-player-card/internal/adapters/output/persistence"
	"media-player-card/internal/config"
	"media-player-card/internal/domain/cardconfig"
	"media-player-card/internal/domain/dispatch"
	"media-player-card/internal/domain/model"
	"media-player-card/internal/domain/service"
)

func main() {
	configPath := flag.String("config", os.Getenv("MEDIACARD_CONFIG"), "path to an optional YAML settings file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "mediacard: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := config.NewLogger(level, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	haClient := homeassistant.NewClient(cfg.StateCacheTTL, logger)
	defer haClient.Close()
	repo := persistence.NewJSONStoreRepository(cfg.StorePath)
	observer := metrics.NewObserver()
	hub := realtime.NewHub(logger)

	policy := dispatch.HapticAcceptedOnly
	if cfg.HapticOnRejected {
		policy = dispatch.HapticAlways
	}
	cards := service.NewCardService(haClient, repo, service.CardOptions{
		HapticFeedback: cfg.HapticFeedback,
		HapticPolicy:   policy,
		Haptic:         hub,
		Observer:       observer,
		Logger:         logger,
	})

	seed, err := loadSeed(cfg.CardsFile)
	if err != nil {
		return err
	}
	if err := cards.Load(ctx, seed); err != nil {
		return err
	}
	if !haClient.IsConfigured() && cfg.HassURL != "" && cfg.HassToken != "" {
		// Credentials from the environment are stored like ones set from the
		// admin API.
		if err := cards.UpdateConfig(ctx, cfg.HassURL, cfg.HassToken); err != nil {
			logger.Warn("initial state load failed", "error", err)
		}
	} else if err := cards.RefreshStates(ctx); err != nil {
		logger.Warn("initial state load failed", "error", err)
	}

	if cfg.WebsocketEnabled {
		sub := homeassistant.NewSubscriber(haClient, logger)
		go func() {
			if err := sub.Subscribe(ctx, cards.OnStateChanged); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("state subscription stopped", "error", err)
			}
		}()
	}

	api := service.NewAPI(cards, service.NewEditor(cards, logger, hub))
	opts := http.ServerOptions{
		Events:  hub,
		Metrics: observer.Handler(),
		Logger:  logger,
	}

	if cfg.HueEnabled {
		ip := cfg.LocalIP
		if ip == "" {
			ip = getLocalIP()
		}
		if ip == "" {
			return errors.New("could not determine local IP, set MEDIACARD_LOCAL_IP")
		}
		port, err := cfg.Port()
		if err != nil {
			return err
		}
		opts.Hue = api
		opts.IP = ip

		ssdpServer := ssdp.NewServer(ip, port, logger)
		go func() {
			if err := ssdpServer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("ssdp server stopped", "error", err)
			}
		}()
	}

	logger.Info("starting", "addr", cfg.ListenAddr, "hue", cfg.HueEnabled, "cards", len(cards.Cards()))
	return http.NewServer(api, opts).ListenAndServe(ctx, cfg.ListenAddr)
}

func loadSeed(path string) ([]*model.CardConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cards file: %w", err)
	}
	return cardconfig.ParseFile(data)
}

func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}
