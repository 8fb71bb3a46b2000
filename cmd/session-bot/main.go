package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/quantframe/sessions/internal/broker/adapters"
	"github.com/quantframe/sessions/internal/config"
	"github.com/quantframe/sessions/internal/logger"
	"github.com/quantframe/sessions/internal/monitoring"
	"github.com/quantframe/sessions/internal/notifications"
	"github.com/quantframe/sessions/internal/session"
	signalsource "github.com/quantframe/sessions/internal/signal"
	"github.com/quantframe/sessions/internal/state"
	"github.com/quantframe/sessions/pkg/reporting"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (e.g., demo_session.json)")
		envFile    = flag.String("env", ".env", "Environment file path (default: .env)")
		resume     = flag.Bool("resume", false, "Resume the session from persisted state")
		liquidate  = flag.Bool("liquidate", false, "Sell all open positions when the session stops")
		tickDelay  = flag.Duration("tick-delay", 0, "Pause between ticks (0 = run back to back)")
	)
	flag.Parse()

	if *configFile == "" {
		log.Fatal("Please specify a config file with -config flag")
	}

	if err := loadEnvFile(*envFile); err != nil {
		log.Printf("Warning: Could not load .env file (%v), checking environment variables...", err)
	}

	fmt.Println("🚀 Session Bot Starting...")

	botConfig, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	botConfig.ApplyEnv()

	if err := run(botConfig, *resume, *liquidate, *tickDelay); err != nil {
		log.Fatalf("Session failed: %v", err)
	}
	fmt.Println("✅ Session stopped successfully")
}

func run(cfg *config.BotConfig, resume, liquidate bool, tickDelay time.Duration) error {
	brk, err := adapters.New(cfg.Broker)
	if err != nil {
		return fmt.Errorf("failed to create broker: %w", err)
	}

	source, err := signalsource.LoadReplay(cfg.Signals.File)
	if err != nil {
		return fmt.Errorf("failed to load signal file: %w", err)
	}

	store, err := state.NewStore(cfg.Paths.StateDir)
	if err != nil {
		return fmt.Errorf("failed to create state store: %w", err)
	}

	sessionLog, err := logger.New(cfg.Paths.LogDir, cfg.Session.SessionID)
	if err != nil {
		return fmt.Errorf("failed to create session logger: %w", err)
	}

	var notifier notifications.Notifier
	if cfg.Notifications != nil && cfg.Notifications.Enabled {
		notifier = notifications.NewTelegramNotifier(
			cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChat)
	}

	var health *monitoring.HealthChecker
	if cfg.Monitoring.Enabled {
		health = monitoring.NewHealthChecker()
		startMonitoringServer(cfg.Monitoring.Listen, health)
	}

	ctrl, err := session.New(cfg.Session, session.Deps{
		Broker:   brk,
		Source:   source,
		Store:    store,
		Logger:   sessionLog,
		Notifier: notifier,
		Health:   health,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	ctx := context.Background()
	if resume {
		if err := ctrl.Restore(ctx); err != nil {
			return fmt.Errorf("failed to restore session: %w", err)
		}
	} else {
		if err := ctrl.Start(ctx); err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
	}

	// SIGINT/SIGTERM stops the session between signal executions.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n🛑 Shutdown signal received...")
		ctrl.RequestStop()
	}()

	console := reporting.NewDefaultConsoleReporter()
	for _, date := range source.Dates() {
		if ctrl.Status() != session.StatusActive {
			break
		}
		report, err := ctrl.Tick(ctx, date)
		if err != nil {
			sessionLog.Error("Tick %s failed: %v", date, err)
			continue
		}
		console.OutputTickReport(report)
		if tickDelay > 0 {
			time.Sleep(tickDelay)
		}
	}

	summary, err := ctrl.Stop(ctx, liquidate)
	if err != nil {
		return fmt.Errorf("failed to stop session: %w", err)
	}
	trades := reporting.TradeLog{
		Trades:       ctrl.TradeHistory(),
		ValueHistory: ctrl.ValueHistory(),
	}

	reporter := reporting.NewDefaultReporter()
	return reporter.WriteAll(reporting.ReportingConfig{
		EnableConsole:   true,
		OutputDirectory: cfg.Paths.ReportDir,
		JSONEnabled:     true,
		CSVEnabled:      true,
		ExcelEnabled:    true,
	}, summary, trades)
}

// startMonitoringServer serves /metrics and /health in the background.
func startMonitoringServer(listen string, health *monitoring.HealthChecker) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/health", health)

	go func() {
		if err := http.ListenAndServe(listen, mux); err != nil {
			log.Printf("Monitoring server stopped: %v", err)
		}
	}()
}

// loadEnvFile loads environment variables from a file
func loadEnvFile(envFile string) error {
	if _, err := os.Stat(envFile); err == nil {
		return godotenv.Load(envFile)
	}
	return fmt.Errorf("env file %s not found", envFile)
}
