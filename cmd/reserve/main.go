// Command reserve is the terminal reservation client. It reads fully booked
// dates from the server's /exec endpoint, walks the customer through the
// wizard and posts the reservation to the form endpoint, keeping a copy in a
// local SQLite file.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"tablebook/internal/availability"
	"tablebook/internal/shared/config"
	"tablebook/internal/submission"
	"tablebook/internal/tui"
	"tablebook/internal/wizard"
	"tablebook/pkg/logger"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "reserve:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg := config.Load()

	// the screen belongs to bubbletea, so logs go to a file
	logPath := os.Getenv("TABLEBOOK_LOG")
	if logPath == "" {
		logPath = "reserve.log"
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	appLogger := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Output: logFile, JSON: true})
	logger.SetDefault(appLogger)

	restaurant, err := config.LoadRestaurant(cfg.RestaurantConfigPath)
	if err != nil {
		return fmt.Errorf("load restaurant config: %w", err)
	}

	local, err := submission.NewSQLiteCache(cfg.LocalCachePath)
	if err != nil {
		return fmt.Errorf("open local cache: %w", err)
	}
	defer local.Close()

	form := restaurant.FormSettings(cfg.Form)
	dispatcher := submission.NewFormDispatcher(form.BaseURL, form.FormID, submission.FieldMapping(form.Entries), form.Timeout).
		WithLogger(appLogger)
	gateway := submission.NewGateway(dispatcher, local, nil).WithLogger(appLogger)

	source := availability.NewClient(cfg.AvailabilityURL, cfg.Form.Timeout)
	machine := wizard.NewMachine(restaurant)

	appLogger.Info("Terminal client started",
		slog.String("availability_url", cfg.AvailabilityURL),
		slog.String("local_cache", cfg.LocalCachePath))

	app := tui.NewApp(machine, source, gateway).WithLogger(appLogger)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}
