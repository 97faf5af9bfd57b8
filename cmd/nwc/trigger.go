package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	changer "github.com/NineCSdev/nothing-wallpaper-changer"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Fire one swap cycle on the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := changer.NewClient(viper.GetString("socket"))
		started, err := client.Trigger(cmd.Context())
		if err != nil {
			return err
		}
		if !started {
			fmt.Println("dropped: a cycle is already in flight")
			return nil
		}
		fmt.Println("cycle started")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}
