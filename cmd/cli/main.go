package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "guildbank-cli",
		Short: "GuildBank CLI tool",
		Long:  `A command line interface for interacting with the GuildBank API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the GuildBank API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(balanceCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(holdingsCmd())
	rootCmd.AddCommand(stocksCmd())
	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(leaderboardCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <user-id>",
		Short: "Show a user's wallet and bank balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(fmt.Sprintf("/api/v1/accounts/%s/balance", args[0]))
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <user-id>",
		Short: "Replay a user's ledger against the stored balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(fmt.Sprintf("/api/v1/accounts/%s/verify", args[0]))
		},
	}
}

func holdingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "holdings <user-id>",
		Short: "List a user's stock positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(fmt.Sprintf("/api/v1/accounts/%s/holdings", args[0]))
		},
	}
}

func stocksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stocks",
		Short: "List all tradable stocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON("/api/v1/stocks")
		},
	}
}

func quoteCmd() *cobra.Command {
	var (
		shares int64
		side   string
	)

	cmd := &cobra.Command{
		Use:   "quote <symbol>",
		Short: "Price an order without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(fmt.Sprintf("/api/v1/stocks/%s/quote?shares=%d&side=%s", args[0], shares, side))
		},
	}

	cmd.Flags().Int64Var(&shares, "shares", 1, "Number of shares")
	cmd.Flags().StringVar(&side, "side", "buy", "Order side (buy or sell)")

	return cmd
}

func leaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard <scope-id>",
		Short: "Show the top XP totals in a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getJSON(fmt.Sprintf("/api/v1/xp/%s/leaderboard", args[0]))
		},
	}
}

func getJSON(path string) error {
	client := &http.Client{Timeout: timeout}

	resp, err := client.Get(baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	printJSON(parsed)

	return nil
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("failed to render output: %v\n", err)
		return
	}

	fmt.Println(string(out))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max-3] + "..."
}
