package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/authority/internal/config"
	coresys "github.com/l1jgo/authority/internal/core/system"
	"github.com/l1jgo/authority/internal/data"
	"github.com/l1jgo/authority/internal/persist"
	"github.com/l1jgo/authority/internal/scripting"
	"github.com/l1jgo/authority/internal/session"
	"github.com/l1jgo/authority/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m         authsim  session authority        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1msession:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ──────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	explicit := false
	if p := os.Getenv("AUTHSIM_CONFIG"); p != "" {
		cfgPath = p
		explicit = true
	}
	cfg, err := config.Load(cfgPath, !explicit)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Session.Name)

	// 3. World descriptor
	printSection("world")
	desc := data.DefaultWorld()
	if cfg.World.Descriptor != "" {
		desc, err = data.LoadWorldDescriptor(cfg.World.Descriptor)
		if err != nil {
			return fmt.Errorf("world: %w", err)
		}
	}
	if cfg.World.RespawnHeight != nil {
		desc.RespawnHeight = *cfg.World.RespawnHeight
	}
	if cfg.World.DestroyBelow != nil {
		desc.DestroyBelow = *cfg.World.DestroyBelow
	}
	printStat("spawn points", len(desc.SpawnPoints))
	printStat("props", desc.PropCount())

	// 4. Script engine
	var engine *scripting.Engine
	if cfg.Scripting.Enabled {
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		printStat("behaviours", len(engine.Behaviours()))
	}
	fmt.Println()

	// 5. Session root
	sess := session.New(session.Options{
		Name:      cfg.Session.Name,
		World:     desc,
		Engine:    engine,
		Log:       log,
		StartedAt: time.Unix(cfg.Session.StartTime, 0),
	})
	defer sess.Close()

	// 6. Systems. The journal subscribes before any player exists so the
	// boot-time master election is recorded.
	runner := coresys.NewRunner()
	startup := system.NewStartupSystem(sess.MarkReady, cfg.Session.ReadyDelayTicks, log)
	runner.Register(startup)
	runner.Register(system.NewFlushSystem(sess.Ownership(), sess.Scripts()))
	runner.Register(system.NewSweepSystem(sess.Ownership(), log))
	runner.Register(system.NewCleanupSystem(sess.Scene(), log))

	var journal *system.JournalSystem
	if cfg.Journal.Enabled {
		printSection("journal")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Journal, sess.Name(), log.Named("journal"))
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := persist.RunMigrations(ctx, db.Pool, log)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("migrations applied (schema %d)", version))
		fmt.Println()

		journal = system.NewJournalSystem(sess.Bus(), persist.NewJournalRepo(db), sess.Name(),
			cfg.Journal.FlushInterval, runner.Ticks, log.Named("journal"))
		runner.Register(journal)
	}

	// 7. Scene population
	if _, err := sess.SpawnProps(desc.Props); err != nil {
		return fmt.Errorf("spawn props: %w", err)
	}
	if _, err := sess.SpawnPlayer(true, cfg.Session.LocalName); err != nil {
		return fmt.Errorf("spawn local player: %w", err)
	}
	for _, name := range cfg.Session.RemotePlayers {
		if _, err := sess.SpawnPlayer(false, name); err != nil {
			return fmt.Errorf("spawn remote player %q: %w", name, err)
		}
	}

	// 8. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Session.TickRate)
	defer ticker.Stop()

	printSection("running")
	printReady(fmt.Sprintf("tick %s, ready after %d ticks", cfg.Session.TickRate, cfg.Session.ReadyDelayTicks))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Session.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			if journal != nil {
				journal.Close()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				journal.Flush(ctx)
				cancel()
			}
			log.Info("session stopped",
				zap.Uint64("ticks", runner.Ticks()),
				zap.Bool("ready", startup.Fired()),
			)
			return nil
		}
	}
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
