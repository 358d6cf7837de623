package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"ORBSentinel/internal/collector"
	"ORBSentinel/internal/config"
	"ORBSentinel/internal/logging"
	"ORBSentinel/internal/metrics"
	"ORBSentinel/internal/notifier"
	"ORBSentinel/internal/recorder"
	"ORBSentinel/internal/scheduler"
	"ORBSentinel/internal/state"
	"ORBSentinel/internal/strategy"
)

// app holds the wired components for one process.
type app struct {
	cfg       *config.Config
	scheduler *scheduler.Scheduler
	metrics   *metrics.Metrics
	telegram  *notifier.TelegramNotifier
	recorder  recorder.Recorder
	tracker   *state.Tracker
	closers   []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// newApp wires every component from cfg. A dry run sends nothing and leaves
// no trace: no-op notifier and recorder, in-memory notification state.
func newApp(cfg *config.Config, dryRun bool) (*app, error) {
	a := &app{cfg: cfg}

	_, logCloser := logging.Setup(logging.Config{Level: cfg.Log.Level, FilePath: cfg.Log.File, Console: os.Stderr})
	a.closers = append(a.closers, logCloser)

	params, err := cfg.StrategyParams()
	if err != nil {
		return nil, err
	}
	windowStart, windowLen, err := cfg.Window()
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}

	fetcher := newFetcher(cfg)
	log.Info().Str("fetcher", fetcher.Name()).Msg("data source selected")
	col := collector.NewCollector(fetcher, collector.Symbols{
		Primary:    cfg.DataSource.PrimarySymbol,
		Volatility: cfg.DataSource.VolatilitySymbol,
		Sector:     cfg.DataSource.SectorSymbol,
	}, cfg.DataSource.Interval, cfg.DataSource.Lookback)

	var n notifier.Notifier = notifier.NoopNotifier{}
	a.recorder = recorder.NewNoopRecorder()
	stateFile := ""
	if !dryRun {
		multi, tg, err := newNotifier(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		n, a.telegram = multi, tg
		a.recorder = newRecorder(cfg)
		stateFile = cfg.StateFile
	}
	a.closers = append(a.closers, a.recorder)

	a.tracker, err = state.NewTracker(stateFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}

	a.metrics = metrics.New()
	a.scheduler = scheduler.New(col, strategy.NewEngine(params), n, a.recorder, a.tracker, a.metrics, scheduler.Options{
		PollInterval: cfg.PollInterval(),
		WindowStart:  windowStart,
		WindowLength: windowLen,
		Location:     params.Location,
		FetchTimeout: cfg.FetchTimeout(),
	})
	return a, nil
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	ds := cfg.DataSource
	if ds.Provider == "rest" {
		return collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, cfg.Proxy, ds.RequestsPerSecond)
	}
	return collector.NewYahooFetcher(cfg.Proxy, ds.RequestsPerSecond)
}

// newNotifier builds every configured channel. A Telegram channel that fails
// to authorize is skipped with a warning as long as another channel remains.
func newNotifier(cfg *config.Config) (*notifier.MultiNotifier, *notifier.TelegramNotifier, error) {
	var channels []notifier.Notifier
	var tg *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		t, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err != nil {
			log.Warn().Err(err).Msg("telegram disabled")
		} else {
			tg = t
			channels = append(channels, t)
		}
	}
	if cfg.Pushbullet.Token != "" {
		channels = append(channels, notifier.NewPushbulletNotifier(cfg.Pushbullet.Token))
	}
	multi := notifier.NewMultiNotifier(channels...)
	if multi.Len() == 0 {
		return nil, nil, notifier.ErrNoChannels
	}
	return multi, tg, nil
}

// newRecorder prefers PostgreSQL, then SQLite, falling back to a no-op.
func newRecorder(cfg *config.Config) recorder.Recorder {
	if dsn := cfg.Database.PostgresDSN; dsn != "" {
		pr, err := recorder.NewPostgresRecorder(dsn)
		if err == nil {
			return pr
		}
		log.Warn().Err(err).Msg("init postgres recorder failed, trying sqlite")
	}
	if path := cfg.Database.SQLitePath; path != "" {
		sr, err := recorder.NewSQLiteRecorder(path)
		if err == nil {
			return sr
		}
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
	}
	return recorder.NewNoopRecorder()
}
