package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/expense-tracker/config"
	"github.com/c360studio/expense-tracker/gmail"
)

// NewSetupCommand checks credentials, runs the interactive OAuth flow,
// probes the model binary, and initializes the database.
func NewSetupCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Authorize Gmail access and initialize the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()

			status := newTable("Step", "Status")

			status.addRow("Config directory", a.Dir)

			credsPath := config.CredentialsPath(a.Dir)
			if _, err := os.Stat(credsPath); err != nil {
				status.addRow("Credentials", "MISSING")
				fmt.Print(status)
				return fmt.Errorf("no credentials.json: create an OAuth client id (Desktop app) in Google Cloud Console, enable the Gmail API, and save the file to %s", credsPath)
			}
			status.addRow("Credentials", "ok")

			if _, err := gmail.Service(ctx, a.Dir, a.Config.Gmail); err != nil {
				status.addRow("Gmail authorization", "FAILED")
				fmt.Print(status)
				return err
			}
			status.addRow("Gmail authorization", "ok")

			if a.ModelAvailable(ctx) {
				status.addRow("Model binary", "ok")
			} else {
				status.addRow("Model binary", "not found (AI parsing, categorization, and chat disabled)")
			}

			st, err := a.Store()
			if err != nil {
				status.addRow("Database", "FAILED")
				fmt.Print(status)
				return err
			}
			status.addRow("Database", st.Path())

			fmt.Print(status)
			fmt.Println("\nSetup complete. Run `expense-tracker sync` to ingest your emails.")
			return nil
		},
	}
}
