package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/csheth/bookfeed/internal/api"
	"github.com/csheth/bookfeed/internal/logging"
	"github.com/csheth/bookfeed/internal/share"
	"github.com/csheth/bookfeed/internal/state"
	"github.com/csheth/bookfeed/internal/store"
	"github.com/csheth/bookfeed/internal/theme"
	"github.com/csheth/bookfeed/internal/tui"
)

func main() {
	server := flag.String("server", "", "backend base URL (default $BOOKFEED_SERVER or http://localhost:5000)")
	perPage := flag.Int("items-per-page", 0, "quotes per feed page (default $BOOKFEED_ITEMS_PER_PAGE or 10)")
	dbPath := flag.String("db", envOr("BOOKFEED_DB", defaultPath(os.UserConfigDir, "bookfeed.db")), "sqlite file for preferences")
	logFile := flag.String("log-file", envOr("BOOKFEED_LOG_FILE", defaultPath(os.UserCacheDir, "bookfeed.log")), "log file; empty disables logging")
	logLevel := flag.String("log-level", envOr("BOOKFEED_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	shareCmd := flag.String("share-cmd", os.Getenv("BOOKFEED_SHARE_CMD"), "command that receives shared quotes on stdin; empty copies to the clipboard")
	exportPath := flag.String("export", envOr("BOOKFEED_EXPORT", "saved_quotes.json"), "file saved quotes are exported to")
	persistSaved := flag.Bool("persist-saved", false, "keep saved quotes between sessions")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	flag.Parse()

	log, closer, err := logging.New(logging.Config{File: *logFile, Level: *logLevel})
	if err != nil {
		fmt.Println("failed to set up logging:", err)
		os.Exit(1)
	}
	defer closer.Close()

	client, err := api.NewFromEnv(api.Config{
		Server:       *server,
		ItemsPerPage: *perPage,
		Logger:       log,
	})
	if err != nil {
		fmt.Println("invalid backend configuration:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := store.Open(*dbPath)
	if err != nil {
		log.WithError(err).WithField("path", *dbPath).Warn("preferences disabled")
		db = nil
	} else {
		defer db.Close()
	}

	var prefs theme.Prefs
	if db != nil {
		prefs = db
	}
	themes := theme.NewController(prefs)
	if mode, err := themes.Init(ctx); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.WithError(err).Warn("theme preference unreadable")
	} else {
		log.WithField("mode", mode).Debug("theme restored")
	}

	var (
		saved      []state.SavedQuote
		savedStore tui.SavedStore
	)
	if *persistSaved && db != nil {
		saved, err = db.SavedQuotes(ctx)
		if err != nil {
			log.WithError(err).Warn("saved quotes unreadable")
		}
		savedStore = db
	}

	log.WithFields(logrus.Fields{
		"server":         client.Server(),
		"items_per_page": client.ItemsPerPage(),
		"persist_saved":  savedStore != nil,
	}).Info("bookfeed starting")

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Service:    client,
			PageSize:   client.ItemsPerPage(),
			Theme:      themes,
			Sharer:     share.New(*shareCmd),
			Saved:      saved,
			SavedStore: savedStore,
			ExportPath: *exportPath,
			Logger:     log,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		log.WithError(err).Error("program exited")
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}

func envOr(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// defaultPath places name under the per-user directory returned by dir,
// falling back to the working directory.
func defaultPath(dir func() (string, error), name string) string {
	base, err := dir()
	if err != nil || base == "" {
		return name
	}
	return filepath.Join(base, "bookfeed", name)
}
