package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maine/dou_bot/internal/config"
)

var testEmailCmd = &cobra.Command{
	Use:   "test-email",
	Short: "Send a test email to the configured recipients",
	Long: `Checks the SMTP credentials and recipients by sending a short test
message. Search and state are not touched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		return sendTestEmail(cmd, s)
	},
}

func init() {
	rootCmd.AddCommand(testEmailCmd)
}

func sendTestEmail(cmd *cobra.Command, s settings) error {
	if !s.cfg.Email.Enabled {
		return fmt.Errorf("%w: email.enabled is false", config.ErrInvalid)
	}
	cfg := s.cfg
	// Проверяем только почтовые секреты.
	cfg.Telegram.Enabled = false
	cfg.Gemini.Enabled = false
	if err := s.env.Require(cfg); err != nil {
		return err
	}

	sender, err := newEmailSender(s, newFormatter(s.cfg))
	if err != nil {
		return fmt.Errorf("create email sender: %w", err)
	}
	if err := sender.SendTest(cmd.Context()); err != nil {
		return fmt.Errorf("send test email: %w", err)
	}
	cmd.Println("Test email sent.")
	return nil
}
