package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lobbywatch/internal/config"
	"lobbywatch/internal/gamesource"
	"lobbywatch/internal/logging"
	"lobbywatch/internal/store"
	"lobbywatch/internal/tracker"
	httptransport "lobbywatch/internal/transport/http"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadApp()
	if err != nil {
		log.Fatal().Err(err).Msg("load config failed")
	}
	if err := logging.Init(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("logging init failed")
	}
	taskCfg, err := tracker.TaskConfigFromTracker(cfg.Tracker)
	if err != nil {
		log.Fatal().Err(err).Msg("task config invalid")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Tracker.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	source := gamesource.NewHTTPClient(gamesource.ClientConfig{
		LobbyURL:   cfg.Tracker.LobbyURL,
		APIURL:     cfg.Tracker.GameAPIURL,
		UserAgent:  cfg.Tracker.SourceUserAgent,
		Cookie:     cfg.Tracker.SourceCookie,
		Timeout:    time.Duration(cfg.Tracker.SourceTimeoutMS) * time.Millisecond,
		RatePerSec: cfg.Tracker.SourceRatePerS,
		Burst:      cfg.Tracker.SourceBurst,
	})

	shutdownTimeout := time.Duration(cfg.Tracker.ShutdownTimeoutMS) * time.Millisecond
	root := newSupervisor(shutdownTimeout)
	tasks := suture.New("tasks", suture.Spec{Timeout: shutdownTimeout})
	api := suture.New("api", suture.Spec{Timeout: shutdownTimeout})
	root.Add(tasks)
	root.Add(api)

	if _, err := tracker.Launch(tasks, taskCfg, tracker.Deps{Source: source, Store: st}); err != nil {
		log.Fatal().Err(err).Msg("launch tasks failed")
	}

	router := httptransport.NewRouter(st)
	httptransport.LogRoutes(router)
	api.Add(httptransport.NewServerService(httptransport.NewServer(cfg.Tracker.HTTPAddr, router), shutdownTimeout))

	log.Info().
		Str("addr", cfg.Tracker.HTTPAddr).
		Strs("tasks", taskCfg.Enabled).
		Msg("tracker starting")
	if err := root.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("supervisor stopped")
	}
	log.Info().Msg("tracker stopped")
}

func newSupervisor(timeout time.Duration) *suture.Supervisor {
	hook := (&sutureslog.Handler{Logger: logging.NewSlogLogger()}).MustHook()
	return suture.New("lobbywatch", suture.Spec{
		EventHook:        hook,
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          timeout,
	})
}
