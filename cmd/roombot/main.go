package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jmdev.ca/glade-room-bot/internal/config"
	"jmdev.ca/glade-room-bot/internal/events"
	"jmdev.ca/glade-room-bot/internal/history"
	"jmdev.ca/glade-room-bot/internal/ledger"
	"jmdev.ca/glade-room-bot/internal/logging"
	"jmdev.ca/glade-room-bot/internal/proxy"
	"jmdev.ca/glade-room-bot/internal/runner"
	"jmdev.ca/glade-room-bot/internal/site"
	"jmdev.ca/glade-room-bot/internal/timer"
)

// errExecutor reports one construction failure for every account it is asked
// to process, keeping a worker alive even when its session could not be set
// up.
type errExecutor struct {
	err error
}

func (e errExecutor) Execute(*ledger.Account, int, bool) error {
	return fmt.Errorf("no session available: %w", e.err)
}

func main() {
	settingsPath := flag.String("settings", "Settings.ini", "path to settings file")
	csvPath := flag.String("csv", "", "ledger CSV with accounts to process")
	room := flag.Int("room", 0, "room to play (1-3)")
	threads := flag.Int("threads", 0, "worker count override")
	proxyURL := flag.String("proxy", "", "proxy URL override")
	testProxy := flag.Bool("test-proxy", false, "test the configured proxy and exit")
	flag.Parse()

	settings, err := config.Load(*settingsPath)
	if err != nil {
		log.Printf("Warning: failed to load settings: %v (using defaults)", err)
		settings = config.NewDefaultSettings()
	}
	if *proxyURL != "" {
		settings.ProxyURL = *proxyURL
	}
	if *threads > 0 {
		settings.Threads = config.ClampThreads(*threads)
	}

	if *testProxy {
		runProxyTest(settings)
		return
	}

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "missing -csv: ledger file is required")
		flag.Usage()
		os.Exit(2)
	}
	if *room < 1 || *room > ledger.NumRooms {
		fmt.Fprintf(os.Stderr, "invalid -room %d: must be 1-%d\n", *room, ledger.NumRooms)
		os.Exit(2)
	}

	if settings.ProxyURL != "" {
		if _, err := site.ParseProxyURL(settings.ProxyURL); err != nil {
			log.Fatalf("Bad proxy configuration: %v", err)
		}
	}

	rooms, err := config.LoadRooms(settings.RoomsFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: %v (using default rooms)", err)
		}
		rooms = config.DefaultRooms()
	}

	logger := logging.NewLogger("roombot").SetMinLevel(logging.ParseLevel(settings.LogLevel))

	bus := events.NewBus(settings.EventQueueSize)
	defer bus.Stop()

	var eventLog *logging.EventLogger
	if settings.LoggingEnabled {
		eventLog, err = logging.NewEventLogger(bus, settings.LogDir)
		if err != nil {
			logger.Warnf("Event logging disabled: %v", err)
		} else {
			defer eventLog.Close()
		}
	}

	// Run history is best-effort: a broken database degrades to a warning,
	// never a refused run.
	var db *history.DB
	if settings.HistoryDBPath != "" {
		db, err = history.Open(settings.HistoryDBPath)
		if err == nil {
			err = db.RunMigrations()
		}
		if err != nil {
			logger.Warnf("Run history disabled: %v", err)
			db = nil
		} else {
			defer db.Close()
		}
	}

	accounts, err := ledger.Read(*csvPath)
	if err != nil {
		log.Fatalf("Failed to load ledger: %v", err)
	}
	logger.Infof("Loaded %d account(s) from %s", len(accounts), *csvPath)

	now := time.Now()
	eligible := timer.FilterReady(accounts, *room, now)
	logger.Infof("Ready for room %d: %d of %d", *room, len(eligible), len(accounts))

	if len(eligible) < len(accounts) {
		printNextAvailable(logger, accounts, eligible, *room, now)
	}

	registerFirst := *room == 1
	if registerFirst {
		logger.Info("Room 1 selected: accounts will be registered before playing")
	}
	if settings.ProxyURL != "" {
		logger.Infof("Using proxy: %s", settings.ProxyURL)
	} else {
		logger.Info("No proxy configured (direct connection)")
	}

	saver := ledger.NewSaver(settings.OutputDir)

	var runID int64
	if db != nil {
		runID, err = db.StartRun(*room, settings.Threads, len(eligible))
		if err != nil {
			logger.Warnf("Failed to record run start: %v", err)
			db = nil
		}
		recordResults(bus, db, runID, logger)
	}

	factory := func(workerID int) runner.Executor {
		client, err := site.NewClient(settings, rooms)
		if err != nil {
			return errExecutor{err: err}
		}
		return client
	}

	var runCompleted bool
	callbacks := runner.Callbacks{
		OnFinished: func(completed bool) {
			runCompleted = completed
		},
		OnAccountProcessed: func(account *ledger.Account) {
			path, err := saver.Record(account)
			if err != nil {
				logger.Error("Failed to save progress", err)
				bus.Publish(events.NewErrorEvent("saver", err, map[string]interface{}{
					"email": account.Email,
				}))
				return
			}
			if path != "" {
				bus.Publish(events.NewProgressSavedEvent(path, saver.Count()))
			}
		},
	}

	run := runner.New(factory, callbacks).
		WithBus(bus).
		WithPopTimeout(time.Duration(settings.PopTimeoutMs) * time.Millisecond).
		WithExitWait(time.Duration(settings.WorkerExitWaitMs) * time.Millisecond)

	if err := run.Start(eligible, *room, registerFirst, settings.Threads); err != nil {
		log.Fatalf("Failed to start run: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Interrupt received, stopping after in-flight accounts finish...")
		run.Stop()
		<-sigCh
		logger.Warn("Second interrupt, exiting immediately")
		os.Exit(1)
	}()

	run.Wait()

	if db != nil {
		if err := db.FinishRun(runID, saver.Count(), runCompleted); err != nil {
			logger.Warnf("Failed to record run finish: %v", err)
		}
	}

	printSummary(logger, saver, *room, runCompleted)
	if eventLog != nil {
		logger.Infof("Event log: %s", eventLog.Path())
	}
}

// recordResults mirrors per-account events into the history database.
func recordResults(bus *events.Bus, db *history.DB, runID int64, logger *logging.Logger) {
	handler := func(event events.Event) {
		email, _ := event.Data["email"].(string)
		room, _ := event.Data["room"].(int)
		success, _ := event.Data["success"].(bool)

		errMsg := ""
		if !success {
			errMsg = "workflow failed"
		}
		if err := db.RecordAccountResult(runID, email, room, success, errMsg, 0); err != nil {
			logger.Warnf("Failed to record result for %s: %v", email, err)
		}
	}
	bus.Subscribe(events.EventTypeAccountProcessed, handler)
	bus.Subscribe(events.EventTypeAccountFailed, handler)
}

// printNextAvailable reports when the soonest not-ready account becomes
// eligible.
func printNextAvailable(logger *logging.Logger, accounts, eligible []*ledger.Account, room int, now time.Time) {
	ready := make(map[*ledger.Account]bool, len(eligible))
	for _, account := range eligible {
		ready[account] = true
	}

	var soonest time.Duration
	found := false
	for _, account := range accounts {
		if ready[account] || account.Room(room).Played {
			continue
		}
		remaining, ok := timer.TimeUntilReady(account, room, now)
		if !ok {
			continue
		}
		if !found || remaining < soonest {
			soonest = remaining
			found = true
		}
	}

	waiting := len(accounts) - len(eligible)
	if found {
		logger.Infof("%d account(s) not ready | next available: %s",
			waiting, timer.FormatRemaining(soonest, true))
	} else {
		logger.Infof("%d account(s) not ready", waiting)
	}
}

func printSummary(logger *logging.Logger, saver *ledger.Saver, room int, completed bool) {
	processed := saver.Processed()
	successes := 0
	for _, account := range processed {
		if account.Room(room).Played {
			successes++
		}
	}

	if completed {
		logger.Info("Processing completed")
	} else {
		logger.Info("Processing stopped early")
	}
	logger.Infof("Processed: %d | Succeeded: %d | Failed: %d",
		len(processed), successes, len(processed)-successes)

	if successes > 0 {
		logger.Infof("Output saved to: %s", ledger.OutputFilename(room))
	}
}

func runProxyTest(settings *config.Settings) {
	if settings.ProxyURL == "" {
		fmt.Fprintln(os.Stderr, "no proxy configured")
		os.Exit(2)
	}

	fmt.Printf("Testing proxy %s...\n", settings.ProxyURL)
	exitIP, err := proxy.Check(settings.ProxyURL, settings.ProxyTestURL,
		time.Duration(settings.ProxyTestTimeoutMs)*time.Millisecond)
	if err != nil {
		fmt.Printf("Proxy test failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Proxy working, exit IP: %s\n", exitIP)
}
