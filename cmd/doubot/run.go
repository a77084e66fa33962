package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	statePath string
	dryRun    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Perform one monitoring run",
	Long: `Searches the portal, enriches and filters new publications, delivers
the digest and records the delivered documents in the state file.

With --dry-run nothing is sent and the state file is left untouched.`,
	Args: cobra.NoArgs,
	RunE: runDigest,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&statePath, "state", "", "path to the state file (default pipeline.state_path)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not send anything and do not update the state file")
}

func runDigest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := loadSettings()
	if err != nil {
		return err
	}
	dry := dryRun || s.env.DryRun

	if s.env.ForceTestEmail {
		return sendTestEmail(cmd, s)
	}
	if !dry {
		if err := s.env.Require(s.cfg); err != nil {
			return err
		}
	}

	p, err := buildPipeline(ctx, s, statePath, dry)
	if err != nil {
		return err
	}
	defer p.close()

	res, err := p.Run(ctx)
	s.logger.Info("run finished",
		"candidates", res.Candidates,
		"enriched", res.Enriched,
		"degraded", res.Degraded,
		"fresh", res.Fresh,
		"kept", res.Kept,
		"summarized", res.Summarized,
		"entries", res.Entries,
		"delivered", res.Delivered,
		"committed", res.Committed,
	)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}
	if dry {
		cmd.Printf("Dry run: %d publications would be delivered.\n", res.Kept)
	}
	return nil
}
