// Package daemon wires the rotation engine, trigger sources, folder
// watcher and control socket into one supervised process.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/catalog"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/commit"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/control"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/decode"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/errutil"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/logging"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/prefs"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/preload"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/rotation"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/session"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/swap"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/trigger"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/watch"
)

// Config assembles one daemon. Flags take precedence over stored
// preferences; preferences fill whatever the flags leave empty.
type Config struct {
	Folder   string
	Patterns []string
	Settle   time.Duration

	Socket string
	DBPath string

	DefaultImage string
	RevertOnStop bool

	// CommitCommand, when set, applies wallpapers via ExecCommitter;
	// otherwise CommitFile (or a default under the user cache dir) is
	// written in place.
	CommitCommand []string
	CommitFile    string

	InteractiveCommand []string

	MQTTBroker string
	MQTTTopic  string

	CronEvery time.Duration
	CronExpr  string

	Watch         bool
	WatchDebounce time.Duration
}

// Run starts the daemon and blocks until ctx is canceled or a component
// fails. A `stop` control command also terminates it.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	logger = logging.Default(logger)

	var store *prefs.Store
	if cfg.DBPath != "" {
		var err error
		store, err = prefs.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open preference store: %w", err)
		}
		defer func() { errutil.LogMsg(store.Close(), "failed to close preference store") }()
		mergePrefs(ctx, &cfg, store, logger)
	}

	if cfg.Socket == "" {
		return fmt.Errorf("no control socket path configured")
	}

	committer, err := buildCommitter(cfg)
	if err != nil {
		return err
	}

	var sess session.Query = session.Static(false)
	if len(cfg.InteractiveCommand) > 0 {
		sess = session.ExecQuery{Command: cfg.InteractiveCommand}
	}

	state := rotation.New(nil)
	pipe := preload.New(state, decode.FileDecoder{}, logger)
	engine := swap.NewEngine(swap.Config{
		Folder:       cfg.Folder,
		Settle:       cfg.Settle,
		DefaultImage: cfg.DefaultImage,
		RevertOnStop: cfg.RevertOnStop,
	}, state, catalog.FolderBuilder{Patterns: cfg.Patterns}, pipe, committer, sess, nil, logger)

	if err := engine.Start(ctx); err != nil {
		// The folder may appear later; a watcher or forced refresh
		// recovers, so a failed first build is not fatal.
		logger.Warn("initial catalog build failed", "error", err)
	}

	if store != nil {
		if err := store.SetBool(ctx, prefs.KeyRunning, true); err != nil {
			logger.Warn("failed to persist running flag", "error", err)
		}
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	fire := func() { engine.HandleTrigger(runCtx) }

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return trigger.SignalSource{}.Run(gctx, fire)
	})
	if cfg.MQTTBroker != "" && cfg.MQTTTopic != "" {
		g.Go(func() error {
			return trigger.MQTTSource{
				Broker: cfg.MQTTBroker,
				Topic:  cfg.MQTTTopic,
				Logger: logger,
			}.Run(gctx, fire)
		})
	}
	if cfg.CronEvery > 0 || cfg.CronExpr != "" {
		g.Go(func() error {
			return trigger.CronSource{Every: cfg.CronEvery, Cron: cfg.CronExpr}.Run(gctx, fire)
		})
	}

	g.Go(func() error {
		return control.NewServer(engine, stop, logger).Serve(gctx, cfg.Socket)
	})

	if cfg.Watch && cfg.Folder != "" {
		w := watch.New(cfg.Folder, cfg.WatchDebounce, func(c context.Context) {
			if err := engine.Refresh(c, "", true); err != nil {
				logger.Warn("watch-driven refresh failed", "error", err)
			}
		}, logger)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	err = g.Wait()

	if engine.Running() {
		engine.Stop(context.Background())
	} else {
		engine.Wait()
	}

	if store != nil {
		if err := store.SetBool(context.Background(), prefs.KeyRunning, false); err != nil {
			logger.Warn("failed to clear running flag", "error", err)
		}
	}
	return err
}

// mergePrefs fills empty config fields from the preference store.
func mergePrefs(ctx context.Context, cfg *Config, store *prefs.Store, logger *slog.Logger) {
	if cfg.Folder == "" {
		if v, found, err := store.Get(ctx, prefs.KeyFolder); err != nil {
			logger.Warn("failed to read folder preference", "error", err)
		} else if found {
			cfg.Folder = v
		}
	}
	if cfg.DefaultImage == "" {
		if v, found, err := store.Get(ctx, prefs.KeyDefaultImage); err != nil {
			logger.Warn("failed to read default image preference", "error", err)
		} else if found {
			cfg.DefaultImage = v
		}
	}
	if !cfg.RevertOnStop {
		if v, err := store.GetBool(ctx, prefs.KeyRevertOnStop, false); err != nil {
			logger.Warn("failed to read revert preference", "error", err)
		} else {
			cfg.RevertOnStop = v
		}
	}
	// Remember the folder we ended up with, so the next start can run
	// without flags.
	if cfg.Folder != "" {
		if err := store.Set(ctx, prefs.KeyFolder, cfg.Folder); err != nil {
			logger.Warn("failed to persist folder preference", "error", err)
		}
	}
}

func buildCommitter(cfg Config) (commit.Committer, error) {
	if len(cfg.CommitCommand) > 0 {
		return commit.ExecCommitter{Command: cfg.CommitCommand}, nil
	}
	path := cfg.CommitFile
	if path == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("no commit target: %w", err)
		}
		path = filepath.Join(cacheDir, "nwc", "lockscreen")
	}
	return commit.FileCommitter{Path: path}, nil
}
