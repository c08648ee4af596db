package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/ledger"
)

func historyCmd() *cobra.Command {
	var (
		limit   int
		intent  string
		outcome string
		keyword string
		since   string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List logged commands, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer store.close()

			q := ledger.Query{
				UserID:  userID(cfg),
				Intent:  command.IntentType(intent),
				Outcome: ledger.Outcome(outcome),
				Keyword: keyword,
				Limit:   limit,
			}
			if since != "" {
				from, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date %q (want YYYY-MM-DD)", since)
				}
				q.From = from
			}

			logs, err := store.List(cmd.Context(), q)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(logs)
			}

			if len(logs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no commands logged")
				return nil
			}
			for _, l := range logs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-19s  %-9s  %s\n",
					l.CreatedAt.Local().Format("2006-01-02 15:04"),
					l.IntentType, l.Outcome, l.Transcript)
				fmt.Fprintf(cmd.OutOrStdout(), "    id: %s\n", l.ID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of commands to show")
	cmd.Flags().StringVar(&intent, "intent", "", "filter by intent type (e.g. create_task)")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome (pending, success, cancelled, failed, undone)")
	cmd.Flags().StringVar(&keyword, "keyword", "", "filter by keyword in transcript or title")
	cmd.Flags().StringVar(&since, "since", "", "only commands on or after this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON instead of a table")

	return cmd
}

// historyHandler serves the debug server's GET /v1/history endpoint.
func historyHandler(store closableStore, user string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := ledger.Query{UserID: user, Limit: 50}

		params := r.URL.Query()
		if v := params.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
				return
			}
			q.Limit = n
		}
		q.Intent = command.IntentType(params.Get("intent"))
		q.Outcome = ledger.Outcome(params.Get("outcome"))
		q.Keyword = params.Get("keyword")

		logs, err := store.List(r.Context(), q)
		if err != nil {
			http.Error(w, `{"error":"ledger unavailable"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(logs); err != nil {
			http.Error(w, `{"error":"encode"}`, http.StatusInternalServerError)
		}
	})
}
