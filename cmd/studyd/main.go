package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/studyd/internal/config"
	"github.com/sandeepkv93/studyd/internal/logging"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/reminders"
	"github.com/sandeepkv93/studyd/internal/scheduler"
	"github.com/sandeepkv93/studyd/internal/storage"
	"github.com/sandeepkv93/studyd/internal/update"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "~/.config/studyd/config.yaml", "path to the YAML config file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	reset := flag.Bool("reset", false, "delete every stored reminder and preference before starting")
	flag.Parse()

	if *showVersion {
		fmt.Println("studyd", version)
		return
	}

	if err := run(*configPath, *reset); err != nil {
		fmt.Fprintf(os.Stderr, "studyd failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, reset bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer kv.Close()

	if reset {
		if err := kv.Clear(ctx); err != nil {
			return fmt.Errorf("reset storage: %w", err)
		}
		log.Warn("stored reminders and preferences cleared")
	}

	prefs := reminders.NewPreferencesStore(kv, cfg.DefaultPreferences(), log)
	if err := prefs.Load(ctx); err != nil {
		return err
	}

	store := reminders.NewStore(kv, reminders.WithLogger(log), reminders.WithDefaults(prefs))

	var notifier scheduler.Notifier = scheduler.NoopNotifier{}
	if cfg.DesktopNotifications {
		desktop := scheduler.NewDesktopNotifier()
		if perm, err := desktop.RequestPermission(); err != nil {
			log.WithError(err).WithField("permission", perm).Warn("desktop notifications unavailable, using in-app alerts")
		}
		notifier = desktop
	}

	alerts := scheduler.NewChannelAlerter(cfg.SchedulerBuffer)
	engine := scheduler.NewEngine(notifier,
		scheduler.WithAlerter(alerts),
		scheduler.WithGate(prefs),
		scheduler.WithMarker(store),
		scheduler.WithLogger(log),
	)
	store.OnChange(func(all []model.Reminder) {
		if err := engine.Reconcile(all); err != nil && !errors.Is(err, scheduler.ErrStopped) {
			log.WithError(err).Warn("reconcile failed")
		}
	})

	if err := store.Load(ctx); err != nil {
		// A corrupt or unreadable collection starts empty; the TUI still runs.
		log.WithError(err).Error("load reminders")
	}
	engine.Start()
	defer engine.Stop()

	log.WithField("reminders", store.Len()).Info("studyd started")

	program := tea.NewProgram(update.NewModel(update.Deps{
		Store:  store,
		Prefs:  prefs,
		Engine: engine,
		Alerts: alerts.C(),
		Log:    log,
	}), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
