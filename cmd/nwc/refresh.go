package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	changer "github.com/NineCSdev/nothing-wallpaper-changer"
)

var (
	refreshFolder string
	refreshForced bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the daemon's wallpaper catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := changer.NewClient(viper.GetString("socket"))
		if err := client.Refresh(cmd.Context(), refreshFolder, refreshForced); err != nil {
			return err
		}
		fmt.Println("catalog rebuilt")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().StringVar(&refreshFolder, "folder", "", "Switch to this source folder")
	refreshCmd.Flags().BoolVar(&refreshForced, "forced", false, "Rebuild even when the folder is unchanged")
}
