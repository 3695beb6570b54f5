package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewChatCommand answers natural-language questions about the ledger.
// With an inline question it answers once; without, it runs a REPL.
func NewChatCommand(app func() *App) *cobra.Command {
	var showSQL bool

	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask questions about your spending in plain language",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()

			if !a.ModelAvailable(ctx) {
				return fmt.Errorf("model binary not available; chat needs it")
			}
			eng, err := a.Query()
			if err != nil {
				return err
			}

			ask := func(question string) {
				answer, err := eng.Ask(ctx, question)
				if err != nil {
					fmt.Printf("Could not answer: %v\n", err)
					return
				}
				if showSQL && answer.SQL != "" {
					fmt.Printf("[sql] %s\n", answer.SQL)
				}
				fmt.Println(answer.Text)
			}

			if len(args) > 0 {
				ask(strings.Join(args, " "))
				return nil
			}

			fmt.Println("Ask about your spending. Empty line or 'exit' to quit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("? ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" || question == "exit" || question == "quit" {
					return nil
				}
				ask(question)
				fmt.Println()
			}
		},
	}

	cmd.Flags().BoolVar(&showSQL, "show-sql", false, "Print the generated SQL before the answer")
	return cmd
}
