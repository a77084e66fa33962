package main

import (
	"github.com/spf13/cobra"

	"github.com/maine/dou_bot/internal/search"
)

var urlsCmd = &cobra.Command{
	Use:   "urls",
	Short: "Print the search URLs built from the config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		for _, q := range search.Queries(s.cfg) {
			cmd.Println(search.BuildQueryURL(s.cfg.Search.BaseURL, q))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(urlsCmd)
}
