package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	changer "github.com/NineCSdev/nothing-wallpaper-changer"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop rotation and shut the daemon down",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := changer.NewClient(viper.GetString("socket"))
		if err := client.Stop(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("daemon stopping")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
