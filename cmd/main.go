// Command travelassist-cli exercises the assistant pipeline from a shell:
// ask the agent, inspect corpus retrieval, validate a flight query or rank a
// saved SerpApi response.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/va6996/travelassist/bootstrap"
	"github.com/va6996/travelassist/config"
	"github.com/va6996/travelassist/corpus"
	"github.com/va6996/travelassist/flights"
	"github.com/va6996/travelassist/log"
	"github.com/va6996/travelassist/plugins/serpapi"
	"github.com/va6996/travelassist/rag"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	rootCmd := &cobra.Command{
		Use:           "travelassist-cli",
		Short:         "Travel assistant command line tools",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Init(logLevel)
			log.SetOutput(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(retrieveCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(rankCmd())
	return rootCmd
}

func askCmd() *cobra.Command {
	var (
		contextJSON string
		location    string
	)
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one chat message to the agent and print the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqCtx := map[string]any{}
			if contextJSON != "" {
				if err := json.Unmarshal([]byte(contextJSON), &reqCtx); err != nil {
					return fmt.Errorf("--context must be a JSON object: %w", err)
				}
			}
			if location != "" {
				reqCtx["location"] = location
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx := cmd.Context()
			app, err := bootstrap.Setup(ctx, cfg)
			if err != nil {
				return fmt.Errorf("setup failed: %w", err)
			}
			defer app.Close()

			reply := app.TravelAgent.ProcessMessage(ctx, args[0], reqCtx)
			return writeJSON(cmd.OutOrStdout(), reply)
		},
	}
	cmd.Flags().StringVarP(&contextJSON, "context", "c", "", "request context as a JSON object")
	cmd.Flags().StringVarP(&location, "location", "l", "", "user location")
	return cmd
}

func retrieveCmd() *cobra.Command {
	var (
		dir        string
		maxResults int
	)
	cmd := &cobra.Command{
		Use:   "retrieve [query]",
		Short: "Show the corpus snippets a message would add to the prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			retriever := rag.NewRetriever(corpus.NewStore(dir))
			snippets := retriever.Retrieve(cmd.Context(), args[0], maxResults)

			out := cmd.OutOrStdout()
			for _, c := range corpus.Categories() {
				fmt.Fprintf(out, "%s:\n", c)
				if len(snippets[c]) == 0 {
					fmt.Fprintln(out, "  (none)")
				}
				for _, s := range snippets[c] {
					fmt.Fprintf(out, "  - %s\n", s)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "data", "corpus directory")
	cmd.Flags().IntVarP(&maxResults, "max", "n", 2, "maximum snippets per category")
	return cmd
}

func validateCmd() *cobra.Command {
	var (
		raw   flights.RawQuery
		today string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a flight query and print the SerpApi parameters it would send",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now
			if today != "" {
				d, err := time.Parse(flights.DateLayout, today)
				if err != nil {
					return fmt.Errorf("--today must be YYYY-MM-DD: %w", err)
				}
				now = func() time.Time { return d }
			}

			q, err := flights.NewValidator(flights.NewResolver(nil), now).Validate(raw)
			if err != nil {
				return err
			}

			params := serpapi.Params(q)
			keys := make([]string, 0, len(params))
			for k := range params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%s=%s\n", k, params.Get(k))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&raw.DepartureID, "from", "", "departure airport code or city")
	f.StringVar(&raw.ArrivalID, "to", "", "arrival airport code or city")
	f.StringVar(&raw.DepartureDate, "date", "", "outbound date (YYYY-MM-DD)")
	f.StringVar(&raw.ReturnDate, "return", "", "return date (YYYY-MM-DD)")
	f.StringVar(&raw.TripType, "type", "", "round-trip, one-way or multi-city")
	f.StringVar(&raw.Country, "country", "", "2-letter country code")
	f.StringVar(&raw.Language, "language", "", "language code")
	f.StringVar(&raw.Currency, "currency", "", "ISO 4217 currency code")
	f.StringVar(&today, "today", "", "override the current date (YYYY-MM-DD)")
	return cmd
}

func rankCmd() *cobra.Command {
	var (
		top     int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "rank [file]",
		Short: "Rank the flights in a saved SerpApi response (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var raw map[string]any
			if err := json.NewDecoder(in).Decode(&raw); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			if !flights.HasResultSections(raw) {
				return fmt.Errorf("response has no best_flights or other_flights")
			}

			results := flights.ParseResults(raw)
			ranking := flights.Rank(results, top)
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), ranking)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RANK\tINPUT\tPRICE\tMINUTES\tSCORE")
			for i, f := range ranking.Flights {
				fmt.Fprintf(w, "%d\t%d\t%g\t%g\t%.4f\n", i+1, f.Position, *f.Price, *f.TotalDuration, f.Score)
			}
			fmt.Fprintf(w, "\n%d of %d results were rankable\n", ranking.Considered, len(results))
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&top, "top", "k", 3, "number of flights to keep")
	cmd.Flags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
