package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stridepath/server/internal/ability"
	"github.com/stridepath/server/internal/component"
	"github.com/stridepath/server/internal/config"
	"github.com/stridepath/server/internal/console"
	"github.com/stridepath/server/internal/core/event"
	coresys "github.com/stridepath/server/internal/core/system"
	"github.com/stridepath/server/internal/data"
	"github.com/stridepath/server/internal/movement"
	"github.com/stridepath/server/internal/persist"
	"github.com/stridepath/server/internal/scripting"
	"github.com/stridepath/server/internal/system"
	"github.com/stridepath/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	statusInterval = time.Minute
	intentBuffer   = 64
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log.Info("starting", zap.String("server", cfg.Server.Name), zap.Duration("tick", cfg.Server.TickRate))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 3. Optional PostgreSQL journal and snapshots
	var (
		journal   system.JournalWriter
		snapshots *persist.SnapshotRepo
	)
	if cfg.Database.Enabled {
		dbCtx, dbCancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Database, log.Named("db"))
		if err != nil {
			dbCancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		version, err := persist.RunMigrations(dbCtx, db.Pool, log)
		dbCancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		journal = persist.NewJournalRepo(db)
		snapshots = persist.NewSnapshotRepo(db)
		log.Info("database ready", zap.Int64("schema_version", version))
	}

	// 4. Ability settings table, hot reloaded on change
	table, err := data.LoadAbilityTable(cfg.Abilities.SettingsPath)
	if err != nil {
		return fmt.Errorf("load ability settings: %w", err)
	}
	store := data.NewSettingsStore(table)
	log.Info("ability settings loaded", zap.Int("abilities", table.Count()))

	reloads := make(chan event.SettingsReloaded, 4)
	if cfg.Abilities.Watch {
		go func() {
			err := data.Watch(ctx, cfg.Abilities.SettingsPath, store, log.Named("settings"), func(prev, next *data.AbilityTable) {
				added, removed, kept := data.Diff(prev, next)
				select {
				case reloads <- event.SettingsReloaded{Added: added, Removed: removed, Kept: kept}:
				default:
					log.Warn("settings reload notice dropped, game loop busy")
				}
			})
			if err != nil {
				log.Error("settings watcher stopped", zap.Error(err))
			}
		}()
	}

	// 5. Ability classes: built-in movement plus Lua scripts
	registry := ability.NewRegistry()
	for _, c := range movement.Classes() {
		if err := registry.Register(c); err != nil {
			return fmt.Errorf("register class: %w", err)
		}
	}
	engine, err := scripting.NewEngine(cfg.Abilities.ScriptsDir, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer engine.Close()
	if err := engine.RegisterClasses(registry); err != nil {
		return fmt.Errorf("register scripted classes: %w", err)
	}
	log.Info("ability classes registered", zap.Int("classes", registry.Count()), zap.Strings("kinds", registry.Kinds()))

	// 6. World state
	moveDefaults, err := movement.DefaultSettings().Overlay(cfg.Movement.Defaults)
	if err != nil {
		return fmt.Errorf("movement defaults: %w", err)
	}
	allows, impulses, err := movementAllows(cfg.Movement.Allows)
	if err != nil {
		return fmt.Errorf("movement allows: %w", err)
	}
	attrs := make([]world.AttributeSpec, 0, len(cfg.Attributes))
	for _, a := range cfg.Attributes {
		attrs = append(attrs, world.AttributeSpec{Kind: a.Kind, Base: a.Base, Min: a.Min, Max: a.Max})
	}
	bus := event.NewBus()
	ws := world.NewState(world.Options{
		Log:      log.Named("world"),
		Bus:      bus,
		Classes:  registry,
		Settings: store,
		Permissions: ability.Permissions{
			FullAccess:      cfg.Permission.FullAccess,
			SystemAccess:    cfg.Permission.SystemAccess,
			SubsystemAccess: cfg.Permission.SubsystemAccess,
			Attributes:      cfg.Permission.Attributes,
		},
		Ticker:           cfg.TickerConfig(),
		Attributes:       attrs,
		MovementDefaults: moveDefaults,
		MovementAllows:   allows,
		MovementImpulses: impulses,
	})

	// 7. Spawn configured actors, restoring saved grants
	for _, ac := range cfg.Actors {
		if _, err := ws.Spawn(ac.Name); err != nil {
			return err
		}
		if snapshots != nil && restore(ctx, ws, snapshots, ac.Name, log) {
			continue
		}
		for _, key := range ac.Abilities {
			ws.Grant(ac.Name, key, "", system.Operator)
		}
	}

	// 8. Create systems and register with runner
	intents := make(chan console.Intent, intentBuffer)
	perSecond := 0
	if cfg.RateLimit.Enabled {
		perSecond = cfg.RateLimit.CommandsPerSecond
	}
	journalSys := system.NewJournalSystem(bus, journal, cfg.Journal, log.Named("journal"))
	runner := coresys.NewRunner()
	input := system.NewInputSystem(ws, bus, intents, reloads, perSecond, 0, os.Stdout, log.Named("input"))
	input.SetJournal(journalSys)
	runner.Register(input)
	runner.Register(system.NewMovementSystem(ws, log.Named("movement")))
	runner.Register(system.NewTickerSystem(ws.Host()))
	runner.Register(system.NewEventSystem(bus, log.Named("event")))
	runner.Register(system.NewStatusSystem(ws, statusInterval, log.Named("status")))
	runner.Register(journalSys)
	runner.Register(system.NewCleanupSystem(ws.World(), log.Named("cleanup")))

	go func() {
		fmt.Println(console.Usage)
		if err := console.Read(ctx, os.Stdin, intents, os.Stderr, log.Named("console")); err != nil {
			log.Warn("console closed", zap.Error(err))
		}
	}()

	// 9. Start game loop
	tick := time.NewTicker(cfg.Server.TickRate)
	defer tick.Stop()
	log.Info("game loop started", zap.Int("actors", ws.ActorCount()))

	for {
		select {
		case <-tick.C:
			runner.Tick(cfg.Server.TickRate)
		case <-ctx.Done():
			log.Info("shutdown signal received")
			shutdown(ws, snapshots, journalSys, runner, cfg.Server.TickRate, log)
			return nil
		}
	}
}

// shutdown saves every actor's grants, ends play and flushes the journal.
func shutdown(ws *world.State, snapshots *persist.SnapshotRepo, journalSys *system.JournalSystem,
	runner *coresys.Runner, dt time.Duration, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if snapshots != nil {
		ws.AllActors(func(a *component.Actor, sys *ability.System) {
			if err := snapshots.Save(ctx, a.Name, persist.SnapshotOf(sys)); err != nil {
				log.Error("save snapshot failed", zap.String("actor", a.Name), zap.Error(err))
			}
		})
	}
	ws.Shutdown()
	// Deliver the removal events raised by Shutdown before the final flush.
	runner.TickPhase(coresys.PhasePostUpdate, dt)
	if err := journalSys.Flush(ctx); err != nil {
		log.Error("final journal flush failed", zap.Error(err))
	}
	log.Info("server stopped")
}

// restore re-grants an actor's saved abilities and re-activates those that
// were running. It reports whether a snapshot was found.
func restore(ctx context.Context, ws *world.State, repo *persist.SnapshotRepo, actor string, log *zap.Logger) bool {
	snaps, err := repo.Load(ctx, actor)
	if err != nil {
		log.Warn("load snapshot failed", zap.String("actor", actor), zap.Error(err))
		return false
	}
	if len(snaps) == 0 {
		return false
	}
	sys, _ := ws.GetByName(actor)
	for _, s := range snaps {
		if !ws.Grant(actor, s.Key, s.Class, system.Operator) {
			continue
		}
		if s.State != ability.Inactive.String() {
			sys.Activate(s.Key, system.Operator)
		}
	}
	log.Info("actor restored", zap.String("actor", actor), zap.Int("abilities", sys.Len()))
	return true
}

// movementAllows splits the [movement.allows] table into editable settings
// per class and the classes granted impulses.
func movementAllows(in map[string][]string) (map[string][]movement.Setting, []string, error) {
	if len(in) == 0 {
		return nil, nil, nil
	}
	out := make(map[string][]movement.Setting, len(in))
	var impulses []string
	for kind, names := range in {
		for _, n := range names {
			if n == movement.ImpulseAllow {
				impulses = append(impulses, kind)
				continue
			}
			s, err := movement.ParseSetting(n)
			if err != nil {
				return nil, nil, fmt.Errorf("class %s: %w", kind, err)
			}
			out[kind] = append(out[kind], s)
		}
	}
	return out, impulses, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
