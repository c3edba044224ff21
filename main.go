package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"gitea.kood.tech/petrkubec/match-me/matchradar/config"
	"gitea.kood.tech/petrkubec/match-me/matchradar/logger"
	"gitea.kood.tech/petrkubec/match-me/matchradar/resolve"
	"gitea.kood.tech/petrkubec/match-me/matchradar/scoring"
)

// cli carries what PersistentPreRunE loads for every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
	log        logger.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "matchradar",
		Short:        "Match scoring and radar chart service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			log, err := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.cfg = cfg
			c.log = log.WithFields(map[string]interface{}{"app": cfg.App.Name, "env": cfg.App.Environment})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config.yaml (default ./configs/config.yaml)")

	root.AddCommand(
		c.serveCmd(),
		c.migrateCmd(),
		c.seedCmd(),
		c.scoreCmd(),
		c.renderCmd(),
		c.tokenCmd(),
	)
	return root
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s, cleanup, err := c.bootstrap(ctx, reg)
	if err != nil {
		return err
	}
	defer cleanup()

	bgCtx, cancelBg := context.WithCancel(ctx)
	bgDone := make(chan struct{})
	go func() {
		defer close(bgDone)
		s.runBackground(bgCtx)
	}()

	srv := &http.Server{
		Addr:              c.cfg.HTTP.Address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		c.log.Info("Starting matchradar", map[string]interface{}{"address": c.cfg.HTTP.Address})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		cancelBg()
		<-bgDone
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	c.log.Info("Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	// hijacked websocket connections are not tracked by Shutdown
	s.sessions.closeAll()
	err = srv.Shutdown(shutdownCtx)
	cancelBg()
	<-bgDone
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// bootstrap opens the database, migrates it and builds the server.
func (c *cli) bootstrap(ctx context.Context, reg *prometheus.Registry) (*Server, func(), error) {
	db, dialect, err := openDB(ctx, c.cfg.Database, c.log)
	if err != nil {
		return nil, nil, err
	}
	s, err := newServer(c.cfg, c.log, db, dialect, reg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := s.store.Migrate(ctx); err != nil {
		s.Close()
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	cleanup := func() {
		if err := s.Close(); err != nil {
			c.log.Warn("Close failed", map[string]interface{}{"error": err})
		}
		db.Close()
	}
	return s, cleanup, nil
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the profile tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cleanup, err := c.bootstrap(cmd.Context(), prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer cleanup()
			c.log.Info("Migration complete", nil)
			return nil
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a deterministic set of demo profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			s, cleanup, err := c.bootstrap(ctx, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := seedProfiles(ctx, s.store, opts, time.Now(), c.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d profiles\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Count, "count", 300, "number of profiles to create")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 42, "RNG seed (deterministic)")
	cmd.Flags().BoolVar(&opts.Truncate, "truncate", false, "empty the tables first")
	cmd.Flags().Float64Var(&opts.DismissRate, "dismiss-rate", 0.2, "probability that a member dismisses one other member (0..1)")
	return cmd
}

func (c *cli) scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <viewer-id> <candidate-id>",
		Short: "Print the breakdown and overall score for a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := c.bootstrap(cmd.Context(), prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer cleanup()

			res := s.resolver.Resolve(cmd.Context(), resolve.Request{Viewer: args[0], Candidate: args[1]})
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(scoreView{
				Score:          res.Score,
				Tier:           res.Tier,
				Recommendation: res.Tier.Recommendation(),
				Breakdown:      res.Breakdown,
				Legacy:         scoring.ToLegacy(res.Breakdown),
				Source:         res.Source,
				TuningVersion:  s.scorer.Tuning().Version,
			})
		},
	}
}

func (c *cli) renderCmd() *cobra.Command {
	var (
		out  string
		size int
	)
	cmd := &cobra.Command{
		Use:   "render <viewer-id> <candidate-id>",
		Short: "Render the radar chart for a pair to a PNG file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := c.bootstrap(cmd.Context(), prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer cleanup()

			if size == 0 {
				size = c.cfg.Chart.Size
			}
			res := s.resolver.Resolve(cmd.Context(), resolve.Request{Viewer: args[0], Candidate: args[1]})

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := s.renderer.RenderPNG(f, size, &res.Breakdown, 1); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			c.log.Info("Chart written", map[string]interface{}{"path": out, "size": size, "source": string(res.Source)})
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "chart.png", "output file")
	cmd.Flags().IntVar(&size, "size", 0, "canvas size in pixels (default chart.size)")
	return cmd
}

func (c *cli) tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <viewer-id>",
		Short: "Issue a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := issueToken([]byte(c.cfg.Auth.JWTSecret), args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
