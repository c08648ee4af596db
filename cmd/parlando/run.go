package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/parlando-app/parlando/internal/command"
	"github.com/parlando-app/parlando/internal/config"
	"github.com/parlando-app/parlando/internal/domain"
	"github.com/parlando-app/parlando/internal/executor"
	"github.com/parlando-app/parlando/internal/extract"
	"github.com/parlando-app/parlando/internal/health"
	"github.com/parlando-app/parlando/internal/intent"
	"github.com/parlando-app/parlando/internal/ledger"
	"github.com/parlando-app/parlando/internal/learned"
	"github.com/parlando-app/parlando/internal/lifecycle"
	"github.com/parlando-app/parlando/internal/observe"
	"github.com/parlando-app/parlando/internal/parse"
	"github.com/parlando-app/parlando/internal/resilience"
	"github.com/parlando-app/parlando/pkg/capture"
	"github.com/parlando-app/parlando/pkg/capture/typed"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the interactive listen/confirm/execute loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoop(cmd)
		},
	}
}

func runLoop(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "parlando"})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// The typed provider and the confirmation prompt share one buffered
	// reader so line input is never split between two buffers. Other
	// providers leave stdin to the prompt alone.
	stdin := bufio.NewReader(os.Stdin)
	var provider capture.Provider
	if cfg.Capture.Provider == "" || cfg.Capture.Provider == "typed" {
		provider = typed.New(stdin)
	} else {
		primary, err := config.DefaultRegistry().CreateCapture(cfg.Capture)
		if err != nil {
			return fmt.Errorf("create capture provider: %w", err)
		}
		// Remote backends fail over to typed input on network failures, so
		// a dead speech gateway never locks the session out.
		fb := resilience.NewCaptureFallback(primary, cfg.Capture.Provider, resilience.FallbackConfig{})
		fb.AddFallback("typed", typed.New(stdin))
		provider = fb
	}

	store, err := openStore(cmd, cfg)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.close()

	user := userID(cfg)

	learnedStore := learned.NewMemStore()
	var patterns extract.PatternSource
	if cfg.Learned.Enabled {
		var mopts []learned.MatcherOption
		if cfg.Learned.PhoneticThreshold > 0 {
			mopts = append(mopts, learned.WithPhoneticThreshold(cfg.Learned.PhoneticThreshold))
		}
		if cfg.Learned.FuzzyThreshold > 0 {
			mopts = append(mopts, learned.WithFuzzyThreshold(cfg.Learned.FuzzyThreshold))
		}
		patterns = learned.NewMatcher(func() []learned.Pattern {
			ps, err := learnedStore.ForUser(context.Background(), user)
			if err != nil {
				slog.Warn("learned patterns unavailable", "err", err)
				return nil
			}
			return ps
		}, mopts...)
	}

	parser := buildParser(cfg, patterns)
	ws := domain.NewMemWorkspace()
	exec := executor.New(ws, store,
		executor.WithLanguage(captureLanguage(cfg)),
		executor.WithRetention(cfg.Ledger.Retention.Std()),
	)

	life := lifecycle.New(provider, parser, exec,
		lifecycle.WithUserID(user),
		lifecycle.WithTransitionHook(func(from, to lifecycle.State) {
			switch to {
			case lifecycle.StateListening:
				metrics.ActiveCycles.Add(ctx, 1)
			case lifecycle.StateSuccess, lifecycle.StateError, lifecycle.StateCancelled:
				metrics.ActiveCycles.Add(ctx, -1)
			}
		}),
	)

	// Hot-reload the log level while running; everything else needs a
	// restart.
	if _, statErr := os.Stat(configPath); statErr == nil {
		watcher, werr := config.NewWatcher(configPath, func(old, new *config.Config) {
			d := config.Diff(old, new)
			if d.LogLevelChanged {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: d.NewLogLevel.Slog(),
				})))
				slog.Info("log level changed", "level", d.NewLogLevel)
			}
			if d.CaptureChanged || d.WeightsChanged || d.LearnedChanged {
				slog.Warn("config changed; restart to apply", "capture", d.CaptureChanged, "weights", d.WeightsChanged, "learned", d.LearnedChanged)
			}
		})
		if werr != nil {
			slog.Warn("config watcher disabled", "err", werr)
		} else {
			defer watcher.Stop()
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.ListenAddr != "" {
		srv := debugServer(cfg.Server.ListenAddr, metrics, store, user)
		g.Go(func() error {
			slog.Info("debug server listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if cfg.Ledger.Retention.Std() > 0 {
		g.Go(func() error {
			purgeLoop(gctx, store)
			return nil
		})
	}

	g.Go(func() error {
		defer stop()
		return interact(gctx, life, stdin, learnedStore, user, metrics)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// buildParser wires the classifier, extractor, and fusion weights.
func buildParser(cfg *config.Config, patterns extract.PatternSource) *parse.Parser {
	var exOpts []extract.Option
	if patterns != nil {
		exOpts = append(exOpts, extract.WithPatternSource(patterns))
	}

	var opts []parse.Option
	if cfg.Parser.Weights != (parse.Weights{}) {
		opts = append(opts, parse.WithWeights(cfg.Parser.Weights))
	}
	return parse.New(intent.New(nil), extract.New(exOpts...), opts...)
}

func captureLanguage(cfg *config.Config) string {
	if cfg.Capture.Language != "" {
		return cfg.Capture.Language
	}
	return "en"
}

// interact drives one listen/confirm cycle per loop iteration until input
// ends or ctx is cancelled.
func interact(ctx context.Context, life *lifecycle.Lifecycle, stdin *bufio.Reader, patterns learned.Store, user string, metrics *observe.Metrics) error {
	fmt.Println("parlando ready. Speak (or type) a command; Ctrl+D quits.")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Print("\n> ")

		start := time.Now()
		parsed, err := life.Listen(ctx)
		metrics.CaptureDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			kind := capture.KindOf(err)
			if kind != "" {
				metrics.RecordCaptureError(ctx, string(kind))
			}
			if kind == capture.KindAborted {
				fmt.Println()
				return nil
			}
			fmt.Println(life.LastError())
			life.Reset()
			continue
		}
		metrics.RecordParsed(ctx, string(parsed.Intent.Type))

		printParsed(parsed)

		fmt.Print("execute? [Y/n] ")
		answer, err := stdin.ReadString('\n')
		if err != nil && strings.TrimSpace(answer) == "" {
			life.Cancel()
			fmt.Println()
			return nil
		}
		if a := strings.ToLower(strings.TrimSpace(answer)); a == "n" || a == "no" {
			life.Cancel()
			life.Reset()
			fmt.Println("cancelled")
			continue
		}

		start = time.Now()
		res, err := life.Confirm(ctx)
		metrics.ExecuteDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			metrics.RecordExecuted(ctx, string(parsed.Intent.Type), "error")
			fmt.Printf("error: %v\n", err)
			life.Reset()
			continue
		}
		if !res.Success {
			metrics.RecordExecuted(ctx, string(parsed.Intent.Type), "failed")
			fmt.Printf("not executed: %s\n", res.Err)
			life.Cancel()
			life.Reset()
			continue
		}
		metrics.RecordExecuted(ctx, string(parsed.Intent.Type), "success")

		fmt.Printf("created %s %s\n", res.CreatedKind, res.CreatedID)
		printFields(res.Fields)

		// Every confirmed extraction is an observation; once a phrase
		// repeats often enough the matcher starts applying it.
		for _, e := range parsed.Entities {
			if _, oerr := patterns.Observe(ctx, user, e.Value, e.Type, e.Normalized); oerr != nil {
				slog.Warn("observe pattern", "err", oerr)
			}
		}

		life.Reset()
	}
}

// printParsed renders the parsed command for the confirmation prompt.
func printParsed(parsed command.ParsedCommand) {
	fmt.Printf("heard: %q\n", parsed.Transcript)
	fmt.Printf("intent: %s (%.0f%% confident, %.0f%% overall)\n",
		parsed.Intent.Type, parsed.Intent.Confidence*100, parsed.Overall*100)
	for _, e := range parsed.Entities {
		fmt.Printf("  %-10s %q", e.Type, e.Value)
		if e.Normalized != e.Value {
			fmt.Printf(" -> %s", e.Normalized)
		}
		fmt.Println()
	}
}

// printFields renders resolved fields, marking defaulted values.
func printFields(fields map[string]command.FieldValue) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fv := fields[name]
		marker := ""
		if fv.IsDefault {
			marker = " (default)"
		}
		fmt.Printf("  %-10s %s%s\n", name, fv.Value, marker)
	}
}

// debugServer exposes Prometheus metrics, health probes, and a JSON
// history endpoint.
func debugServer(addr string, metrics *observe.Metrics, store closableStore, user string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	h := health.New(health.Checker{
		Name: "ledger",
		Check: func(ctx context.Context) error {
			_, err := store.List(ctx, ledger.Query{Limit: 1})
			return err
		},
	})
	h.Register(mux)

	mw := observe.Middleware(metrics)
	mux.Handle("GET /v1/history", mw(historyHandler(store, user)))

	return &http.Server{Addr: addr, Handler: mux}
}

// purgeLoop removes expired command logs once an hour.
func purgeLoop(ctx context.Context, store closableStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeExpired(ctx, now.UTC())
			if err != nil {
				slog.Warn("purge expired logs", "err", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired command logs", "count", n)
			}
		}
	}
}
