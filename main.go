package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"YellowbellPOS/app/config"
	"YellowbellPOS/app/database"
	"YellowbellPOS/app/services"
	"YellowbellPOS/app/websocket"
)

// App owns the long-running pieces of the POS
type App struct {
	cfg           *config.AppConfig
	LoggerService *services.LoggerService
	Store         *database.Store
	Backend       *services.Backend
	WSServer      *websocket.Server
	Mirror        *services.MirrorWorker
	NATS          *services.NATSPublisher

	closeMirrorTarget func() error
}

// NewApp creates a new App application struct
func NewApp(cfg *config.AppConfig) *App {
	return &App{cfg: cfg}
}

// startup opens the store, seeds the catalog and wires every event sink
func (a *App) startup(ctx context.Context) error {
	a.LoggerService = services.NewLoggerService(a.cfg.Logging.Dir)
	if a.cfg.Logging.KeepDays > 0 {
		if err := a.LoggerService.CleanOldLogs(a.cfg.Logging.KeepDays); err != nil {
			a.LoggerService.LogWarning("Could not clean old logs", err.Error())
		}
	}

	store, err := database.Open(a.cfg.Store.DBPath())
	if err != nil {
		return err
	}
	a.Store = store
	a.LoggerService.LogInfo("Store opened", store.Path())

	if err := store.SeedCatalog(); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	a.Backend = services.NewBackend(store)

	a.WSServer = websocket.NewServer(":"+strconv.Itoa(a.cfg.Server.Port), a.Backend, a.Backend)
	a.WSServer.EnableMDNS(a.cfg.Server.AnnounceMDNS)
	a.Backend.Bus.Subscribe(a.WSServer)

	if a.cfg.Mirror.Enabled {
		if err := a.startMirror(ctx); err != nil {
			// The mirror is optional; the POS runs without it
			a.LoggerService.LogWarning("Mirror disabled", err.Error())
		}
	}

	if a.cfg.Events.NATSURL != "" {
		publisher, err := services.NewNATSPublisher(a.cfg.Events.NATSURL, a.cfg.Events.SubjectPrefix)
		if err != nil {
			a.LoggerService.LogWarning("NATS events disabled", err.Error())
		} else {
			a.NATS = publisher
			a.Backend.Bus.Subscribe(publisher)
		}
	}

	return nil
}

func (a *App) startMirror(ctx context.Context) error {
	var target services.MirrorTarget
	switch a.cfg.Mirror.Target {
	case config.MirrorTargetSheets:
		sheets, err := services.NewSheetsMirror(ctx, a.cfg.Mirror.Sheets)
		if err != nil {
			return err
		}
		target = sheets
	default:
		pg, err := database.OpenPostgresMirror(a.cfg.Mirror.Postgres)
		if err != nil {
			return err
		}
		target = pg
		a.closeMirrorTarget = pg.Close
	}

	a.Mirror = services.NewMirrorWorker(a.Store, target, a.LoggerService,
		a.cfg.Mirror.QueueSize, time.Duration(a.cfg.Mirror.TimeoutSeconds)*time.Second)
	a.Mirror.Start()
	a.Backend.Bus.Subscribe(a.Mirror)
	a.LoggerService.LogInfo("Mirror started", target.Name())
	return nil
}

// shutdown stops everything startup started, in reverse order
func (a *App) shutdown() {
	if a.WSServer != nil {
		a.WSServer.Stop()
	}
	if a.NATS != nil {
		if err := a.NATS.Close(); err != nil {
			a.LoggerService.LogWarning("NATS close failed", err.Error())
		}
	}
	if a.Mirror != nil {
		a.Mirror.Stop()
	}
	if a.closeMirrorTarget != nil {
		if err := a.closeMirrorTarget(); err != nil {
			a.LoggerService.LogWarning("Mirror close failed", err.Error())
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.LoggerService.LogError("Store close failed", err)
		}
	}
	if a.LoggerService != nil {
		a.LoggerService.LogInfo("Shutdown complete")
		a.LoggerService.Close()
	}
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
