package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/daemon"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/errutil"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/logging"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/watch"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the rotation daemon",
	Long: `Run the rotation daemon in the foreground. Swap cycles fire on
SIGUSR1, on the configured MQTT topic or cron schedule, and on demand
through the control socket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.Setup(viper.GetString("log-level"), viper.GetBool("log-json"))

		cfg := daemon.Config{
			Folder:             viper.GetString("folder"),
			Patterns:           viper.GetStringSlice("patterns"),
			Settle:             viper.GetDuration("settle"),
			Socket:             viper.GetString("socket"),
			DBPath:             viper.GetString("db"),
			DefaultImage:       viper.GetString("default-image"),
			RevertOnStop:       viper.GetBool("revert-on-stop"),
			CommitCommand:      viper.GetStringSlice("commit-cmd"),
			CommitFile:         viper.GetString("commit-file"),
			InteractiveCommand: viper.GetStringSlice("interactive-cmd"),
			MQTTBroker:         viper.GetString("mqtt-broker"),
			MQTTTopic:          viper.GetString("mqtt-topic"),
			CronEvery:          viper.GetDuration("cron-every"),
			CronExpr:           viper.GetString("cron"),
			Watch:              viper.GetBool("watch"),
			WatchDebounce:      viper.GetDuration("watch-debounce"),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return daemon.Run(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.String("folder", "", "Wallpaper source folder")
	flags.StringSlice("patterns", nil, "Glob patterns selecting images inside the folder")
	flags.Duration("settle", 0, "Delay between trigger and swap (negative disables)")
	flags.String("db", defaultDBPath(), "Preference database path")
	flags.String("default-image", "", "Image restored when rotation stops")
	flags.Bool("revert-on-stop", false, "Restore the default image on stop")
	flags.StringSlice("commit-cmd", nil, "Command applying a wallpaper ({} expands to the staged file)")
	flags.String("commit-file", "", "File the current wallpaper is written to")
	flags.StringSlice("interactive-cmd", nil, "Command whose zero exit marks the session interactive")
	flags.String("mqtt-broker", "", "MQTT broker address for lock events")
	flags.String("mqtt-topic", "", "MQTT topic carrying lock events")
	flags.Duration("cron-every", 0, "Fire a trigger at this fixed interval")
	flags.String("cron", "", "Cron expression firing triggers")
	flags.Bool("watch", false, "Rebuild the catalog when the folder changes")
	flags.Duration("watch-debounce", watch.DefaultDebounce, "Quiet period before a watch-driven rebuild")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Emit JSON logs")

	for _, name := range []string{
		"folder", "patterns", "settle", "db", "default-image",
		"revert-on-stop", "commit-cmd", "commit-file", "interactive-cmd",
		"mqtt-broker", "mqtt-topic", "cron-every", "cron", "watch",
		"watch-debounce", "log-level", "log-json",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			errutil.ReportError(err, "Failed to bind flag", "flag", name)
		}
	}
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nwc", "prefs.db")
}
