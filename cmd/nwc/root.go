package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/errutil"
)

var rootCmd = &cobra.Command{
	Use:   "nwc",
	Short: "A lock-screen wallpaper rotation daemon",
	Long: `nwc rotates the lock-screen wallpaper on every "device locked" signal,
keeping the next image decoded ahead of time so the swap is never seen.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if _, printErr := fmt.Fprintln(os.Stderr, err); printErr != nil {
			errutil.ReportError(printErr, "Failed to print error to stderr")
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("socket", defaultSocketPath(), "Control socket path")
	if err := viper.BindPFlag("socket", rootCmd.PersistentFlags().Lookup("socket")); err != nil {
		errutil.ReportError(err, "Failed to bind socket flag")
	}
}

func initConfig() {
	viper.SetEnvPrefix("NWC")
	viper.AutomaticEnv()
}

func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "nwc.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("nwc-%d.sock", os.Getuid()))
}
