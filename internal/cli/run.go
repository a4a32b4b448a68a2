package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/clipmarker/clipmarker-agent/internal/api"
	"github.com/clipmarker/clipmarker-agent/internal/backend"
	"github.com/clipmarker/clipmarker-agent/internal/config"
	"github.com/clipmarker/clipmarker-agent/internal/db"
	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
	"github.com/clipmarker/clipmarker-agent/internal/hotkey"
	"github.com/clipmarker/clipmarker-agent/internal/logging"
	"github.com/clipmarker/clipmarker-agent/internal/notify"
	"github.com/clipmarker/clipmarker-agent/internal/session"
	"github.com/clipmarker/clipmarker-agent/internal/settings"
	"github.com/clipmarker/clipmarker-agent/internal/shell"
	"github.com/clipmarker/clipmarker-agent/internal/store"
	"github.com/clipmarker/clipmarker-agent/internal/ui"
	"github.com/clipmarker/clipmarker-agent/internal/watcher"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent in the foreground",
	Long: `Start the agent: register the global hotkeys, serve the local API on
127.0.0.1 and show the tray menu unless CLIPMARKER_HEADLESS is set.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

func runAgent(cmd *cobra.Command, args []string) error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clipmarker agent",
		"version", config.Version,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
		"backend_url", cfg.BackendURL(),
	)

	bindings := hotkey.DefaultBindings()
	if cfg.HotkeysEnabled() {
		if bindings, err = config.ReadHotkeys(cfg.HotkeysPath()); err != nil {
			return fmt.Errorf("failed to read hotkeys: %w", err)
		}
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	authToken, err := ensureAuthToken(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	prefs := settings.NewStore(repo, logger)
	if err := prefs.Load(ctx); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	printBanner(cfg, authToken, prefs.Values())

	notes := notify.New()
	defer notes.Stop()
	notes.OnChange(func(m notify.Message) {
		if m.Visible {
			logger.Info("notification", "text", m.Text)
		}
	})

	client := backend.NewHTTPClient(cfg.BackendURL(), cfg.BackendTimeout(), logger)
	ctrl := session.NewController(client, prefs, notes, logger)

	lastSeq, err := repo.LastCommandSeq(ctx)
	if err != nil {
		logger.Warn("failed to read last command sequence", "error", err)
	}

	disp := dispatch.New(ctrl, prefs, dispatch.Options{
		QueueSize:    cfg.QueueSize(),
		LastSeq:      lastSeq,
		Prompter:     shell.NewTerminalPrompter(logger),
		Foregrounder: shell.NewBell(logger),
		Journal:      repo,
		Logger:       logger,
	})
	go disp.Start(ctx)

	var keys *hotkey.Manager
	if cfg.HotkeysEnabled() {
		keys = hotkey.NewManager(hotkey.OSRegistrar{}, disp, logger)
		if errs := keys.RegisterAll(bindings); len(errs) > 0 {
			logger.Warn("some hotkeys were not registered",
				"failed", len(errs),
				"registered", keys.Active(),
			)
		}
		hotkeysWatcher := watcher.NewPollWatcher(watcher.DefaultInterval, logger)
		hotkeysWatcher.OnChange(func(path string, ev watcher.EventType) {
			reloadHotkeys(keys, path, logger)
		})
		go func() {
			if err := hotkeysWatcher.Watch(ctx, cfg.HotkeysPath()); err != nil {
				logger.Warn("hotkey file watcher stopped", "error", err)
			}
		}()
	} else {
		logger.Info("global hotkeys disabled")
	}

	go startup(ctx, ctrl, disp, logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:          cfg.Port(),
		Controller:    ctrl,
		Dispatcher:    disp,
		Settings:      prefs,
		Notifications: notes,
		Repository:    repo,
		Logger:        logger,
		StartTime:     startTime,
		Version:       config.Version,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Submitter:     disp,
			Status:        ctrl,
			Notifications: notes,
			DarkMode:      prefs,
			Logger:        logger,
			OnQuit:        quit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")

	if keys != nil {
		if err := keys.UnregisterAll(); err != nil {
			logger.Warn("failed to unregister hotkeys", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	cancel()

	logger.Info("shutdown complete")
	return nil
}

// startup probes the backend and opens the first session through the
// queue so it is journaled like any other command.
func startup(ctx context.Context, ctrl *session.Controller, disp *dispatch.Dispatcher, logger *slog.Logger) {
	if err := ctrl.CheckHealth(ctx); err != nil {
		logger.Warn("backend not reachable at startup", "error", err)
	}
	if _, _, err := disp.Submit(dispatch.TagNewSession, dispatch.OriginStartup); err != nil {
		logger.Warn("failed to queue initial session", "error", err)
	}
}

// reloadHotkeys swaps in the bindings from path. An invalid file keeps the
// current set.
func reloadHotkeys(keys *hotkey.Manager, path string, logger *slog.Logger) {
	bindings, err := config.ReadHotkeys(path)
	if err != nil {
		logger.Error("ignoring invalid hotkey file", "path", logging.SanitizePath(path), "error", err)
		return
	}
	errs := keys.RegisterAll(bindings)
	logger.Info("hotkeys reloaded", "registered", keys.Active(), "failed", len(errs))
}

func ensureAuthToken(ctx context.Context, repo *store.SQLiteRepository) (string, error) {
	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	token := uuid.NewString()
	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}
	return token, nil
}

func printBanner(cfg config.Config, token string, prefs settings.Values) {
	output := prefs.OutputFolder
	if output == "" {
		output = "(not set)"
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                  CLIPMARKER AGENT v%-22s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", token)
	fmt.Printf("║  Backend:    %-45s ║\n", cfg.BackendURL())
	fmt.Printf("║  Basename:   %-45s ║\n", prefs.Basename)
	fmt.Printf("║  Output:     %-45s ║\n", logging.SanitizePath(output))
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()
}
