package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"supplyq/internal/server"
	"supplyq/pkg/supplyq"
)

func newInitCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Open the store and load any persisted value table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, cfg, err := openClient(cmd, flags)
			if err != nil {
				return err
			}
			defer client.Close()

			loaded, err := client.Init(cmd.Context())
			if err != nil {
				return err
			}
			table := client.Status().Table
			fmt.Fprintf(cmd.OutOrStdout(), "initialized store=%s loaded=%t states=%d entries=%d\n",
				cfg.Store.Kind, loaded, table.States, table.Entries)
			return nil
		},
	}
}

func newResetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the learned value table and restore preset node data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, cfg, err := openClient(cmd, flags)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset store=%s\n", cfg.Store.Kind)
			return nil
		},
	}
}

func newTrainCmd(flags *globalFlags) *cobra.Command {
	var episodes int
	var noArtifacts bool
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run training episodes against a copy of the node data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := openClient(cmd, flags)
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.Init(cmd.Context()); err != nil {
				return err
			}
			summary, err := client.Train(cmd.Context(), supplyq.TrainRequest{
				Episodes:      episodes,
				SkipArtifacts: noArtifacts,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run_id=%s episodes=%d steps=%d mean_reward=%.4f states=%d\n",
				summary.RunID, summary.Episodes, summary.TotalSteps, summary.Summary.Mean, summary.Table.States)
			if summary.ArtifactsDir != "" {
				fmt.Fprintf(out, "artifacts=%s\n", summary.ArtifactsDir)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&episodes, "episodes", 10, "number of training episodes")
	cmd.Flags().BoolVar(&noArtifacts, "no-artifacts", false, "skip writing run artifacts")
	return cmd
}

func newStepCmd(flags *globalFlags) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Apply live steps to the node data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := openClient(cmd, flags)
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.Init(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				res, err := client.Step(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "step=%d node=%s quantity=%g reward=%.4f stockouts=%g\n",
					res.Step, res.Action.NodeID, res.Action.Quantity, res.Reward, res.Outcome.Stockouts)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 1, "number of steps")
	return cmd
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var duration time.Duration
	var speed float64
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the live loop for a fixed duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := openClient(cmd, flags)
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.Init(cmd.Context()); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session, err := client.StartLive(speed)
			if err != nil {
				return err
			}
			timer := time.NewTimer(duration)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
			if err := client.StopLive(); err != nil {
				return err
			}

			status := client.Status()
			fmt.Fprintf(cmd.OutOrStdout(), "session=%s steps=%d mean_reward=%.4f states=%d\n",
				session, status.Step, status.Trace.Mean, status.Table.States)
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to run the live loop")
	cmd.Flags().Float64Var(&speed, "speed", 0, "ticks per second (0 keeps the configured speed)")
	return cmd
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the controller over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, cfg, err := openClient(cmd, flags)
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.Init(cmd.Context()); err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") || cfg.Server.Addr == "" {
				cfg.Server.Addr = addr
			}
			srv, err := server.New(server.Config{
				Controller: client.Controller(),
				Metrics:    client.Metrics(),
				Logger:     cfg.logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	return cmd
}

func newInspectCmd(flags *globalFlags) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print controller status and recent training runs as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := openClient(cmd, flags)
			if err != nil {
				return err
			}
			defer client.Close()

			if runID != "" {
				detail, err := client.Run(cmd.Context(), runID)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), detail)
			}
			if _, err := client.Init(cmd.Context()); err != nil {
				return err
			}
			runs, err := client.Runs(cmd.Context(), supplyq.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"status": client.Status(),
				"nodes":  client.Controller().Nodes(),
				"runs":   runs,
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "print the config and reward series of one training run")
	return cmd
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
