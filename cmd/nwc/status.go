package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	changer "github.com/NineCSdev/nothing-wallpaper-changer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether rotation runs and how many images are loaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := changer.NewClient(viper.GetString("socket"))
		st, err := client.Status(cmd.Context())
		if errors.Is(err, changer.ErrDaemonUnavailable) {
			fmt.Println("daemon not running")
			return nil
		}
		if err != nil {
			return err
		}
		state := "stopped"
		if st.Running {
			state = "running"
		}
		fmt.Printf("rotation %s, %d images in catalog\n", state, st.CatalogSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
