package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joshharrison/sprintloom/internal/config"
	"github.com/joshharrison/sprintloom/internal/cpm"
	"github.com/joshharrison/sprintloom/internal/diag"
	"github.com/joshharrison/sprintloom/internal/eta"
	"github.com/joshharrison/sprintloom/internal/graph"
	"github.com/joshharrison/sprintloom/internal/logger"
	"github.com/joshharrison/sprintloom/internal/rcpsp"
	"github.com/joshharrison/sprintloom/internal/reporter"
	"github.com/joshharrison/sprintloom/internal/state"
	"github.com/joshharrison/sprintloom/internal/store"
	"github.com/joshharrison/sprintloom/internal/timeline"
	"github.com/joshharrison/sprintloom/internal/tracker"
	"github.com/joshharrison/sprintloom/internal/ui"
	"github.com/joshharrison/sprintloom/internal/viewer"
)

var (
	flagConfig  string
	flagTasks   string
	flagIssues  string
	flagProject string
	flagDB      string
	flagStart   string
	flagScope   []string
	flagJSON    bool
	flagFormat  string

	cfg  *config.Config
	vcfg *viper.Viper
	sel  *state.Selection
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sprintloom",
		Short: "Critical paths, resource-aware schedules and ETA ranges for sprint task graphs",
		Long: `Sprintloom reads a task graph from a task file, a tracker export or its
project store, computes the critical path, schedules the work onto assignees
and forecasts when a task or a whole sprint will be done.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ./sprintloom.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagTasks, "tasks", "", "Task file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&flagIssues, "issues", "", "Tracker issue export (JSON)")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "Stored project key")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Project database path (overrides store.path)")
	rootCmd.PersistentFlags().StringVar(&flagStart, "start", "", "Schedule start date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringSliceVar(&flagScope, "scope", nil, "Restrict to these task IDs (comma-separated)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")

	rootCmd.AddCommand(cpmCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(etaCmd())
	rootCmd.AddCommand(timelineCmd())
	rootCmd.AddCommand(whatIfCmd())
	rootCmd.AddCommand(vizCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(viewCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.BoldRed("Error:"), err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration errors to 2 and everything else to 1.
func exitCode(err error) int {
	var cfgErr *diag.ConfigurationError
	if errors.As(err, &cfgErr) {
		return 2
	}
	return 1
}

// setup loads configuration, the logger and the remembered selection.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, vcfg, err = config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagDB != "" {
		cfg.Store.Path = flagDB
	}
	if _, err := logger.Build(cfg.Logger); err != nil {
		return err
	}
	if cfg.File != "" {
		zap.L().Debug("config loaded", zap.String("file", cfg.File))
	}

	sel, err = state.Load(cfg.State.Dir)
	if err != nil {
		zap.L().Warn("ignoring unreadable state", zap.Error(err))
		sel = nil
	}
	return nil
}

func cpmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cpm",
		Short: "Compute earliest/latest times, slack and the critical path",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := prepare(cmd.Context())
			if err != nil {
				return err
			}
			res, err := cpm.AnalyzeWith(in.graph.Subset(flagScope), cpm.Options{Anchor: in.anchor})
			if err != nil {
				return fmt.Errorf("CPM analysis: %w", err)
			}
			logWarnings(res.Warnings)

			if flagJSON {
				return outputJSON(cmd, res)
			}
			reporter.New(in.graph).PrintCPM(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Schedule tasks onto assignees without double-booking anyone",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := prepare(cmd.Context())
			if err != nil {
				return err
			}
			s, err := rcpsp.Run(in.graph.Subset(flagScope), in.cal, rcpsp.Options{Start: in.start, Anchor: in.anchor})
			if err != nil {
				return fmt.Errorf("schedule: %w", err)
			}
			logWarnings(s.Warnings)

			if flagJSON {
				return outputJSON(cmd, s)
			}
			reporter.New(in.graph).PrintSchedule(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func etaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eta <target>",
		Short: "Estimate an optimistic and pessimistic completion range for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := prepare(cmd.Context())
			if err != nil {
				return err
			}
			res, err := eta.Estimate(in.graph, in.cal, eta.Request{
				Scope:  flagScope,
				Target: args[0],
				Start:  in.start,
				Anchor: in.anchor,
			})
			if err != nil {
				return fmt.Errorf("estimate %s: %w", args[0], err)
			}
			logWarnings(res.Warnings)

			if flagJSON {
				return outputJSON(cmd, res)
			}
			reporter.New(in.graph).PrintETA(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func timelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline",
		Short: "Build the sprint timeline with per-task and overall completion dates",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := prepare(cmd.Context())
			if err != nil {
				return err
			}
			tl, err := timeline.Build(in.graph, in.cal, timeline.Request{Scope: flagScope, Start: in.start, Anchor: in.anchor})
			if err != nil {
				return fmt.Errorf("build timeline: %w", err)
			}
			logWarnings(tl.Schedule.Warnings)

			if flagJSON {
				return outputJSON(cmd, tl)
			}
			reporter.New(in.graph).PrintTimeline(cmd.OutOrStdout(), tl)
			return nil
		},
	}
}

func whatIfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whatif <task>",
		Short: "Show how the sprint completion moves if a task is dropped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := prepare(cmd.Context())
			if err != nil {
				return err
			}
			res, err := timeline.WhatIf(cmd.Context(), in.graph, in.cal,
				timeline.Request{Scope: flagScope, Start: in.start, Anchor: in.anchor}, args[0])
			if err != nil {
				return fmt.Errorf("what-if %s: %w", args[0], err)
			}
			logWarnings(res.Before.Schedule.Warnings)
			zap.L().Info("what-if simulated",
				zap.String("removed", res.Removed),
				zap.Int("delta_days", res.DeltaDays))

			if flagJSON {
				return outputJSON(cmd, res)
			}
			reporter.New(in.graph).PrintWhatIf(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func vizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Print the task dependency graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := prepare(cmd.Context())
			if err != nil {
				return err
			}
			g := in.graph.Subset(flagScope)
			res, err := cpm.AnalyzeWith(g, cpm.Options{Anchor: in.anchor})
			if err != nil {
				return fmt.Errorf("CPM analysis: %w", err)
			}

			switch flagFormat {
			case "dot":
				printDOT(cmd.OutOrStdout(), g, res)
			case "json":
				return outputJSON(cmd, viewer.ToGraph(g, res, time.Now()))
			case "ascii", "":
				printASCIIDAG(cmd.OutOrStdout(), g, res)
			default:
				return diag.Configf("format", "unsupported format %q (use ascii, dot or json)", flagFormat)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "ascii", "Output format (ascii, dot, json)")

	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import a tracker export into the project store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagIssues == "" {
				return diag.Configf("issues", "pass the export to import with --issues")
			}
			data, err := os.ReadFile(flagIssues)
			if err != nil {
				return fmt.Errorf("read export: %w", err)
			}
			batch, err := tracker.ParseIssues(data, cfg.TrackerOptions())
			if err != nil {
				return fmt.Errorf("parse export: %w", err)
			}
			logWarnings(batch.Warnings)

			key := flagProject
			if key == "" {
				key = batch.Project
			}
			if key == "" {
				return diag.Configf("project", "export has no project key; pass --project")
			}

			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			p := store.Project{
				Key:         key,
				Name:        key,
				SprintName:  batch.Sprint.Name,
				SprintStart: batch.Sprint.Start,
				SprintEnd:   batch.Sprint.End,
			}
			if err := st.SaveProject(cmd.Context(), p, batch.Tasks); err != nil {
				return fmt.Errorf("save project: %w", err)
			}
			remember(key, batch.Sprint.Name, flagIssues)

			zap.L().Info("project imported", zap.String("project", key), zap.Int("tasks", len(batch.Tasks)))
			fmt.Fprintf(cmd.OutOrStdout(), "%s Imported %s tasks into %s\n",
				ui.Green("✓"), ui.Bold(len(batch.Tasks)), ui.BoldMagenta(key))
			return nil
		},
	}
}

func projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			projects, err := st.Projects(cmd.Context())
			if err != nil {
				return err
			}
			if flagJSON {
				return outputJSON(cmd, projects)
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Dim("No projects imported yet."))
				return nil
			}
			for _, p := range projects {
				marker := " "
				if sel != nil && p.Key == sel.Project {
					marker = ui.BoldGreen("*")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-10s %s\n", marker, ui.BoldMagenta(p.Key), ui.Dim(p.SprintName))
			}
			return nil
		},
	}
}

func viewCmd() *cobra.Command {
	var flagPort int

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Serve the graph snapshot over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := prepare(cmd.Context())
			if err != nil {
				return err
			}
			g := in.graph.Subset(flagScope)
			res, err := cpm.AnalyzeWith(g, cpm.Options{Anchor: in.anchor})
			if err != nil {
				return fmt.Errorf("CPM analysis: %w", err)
			}
			logWarnings(res.Warnings)

			port := cfg.Viewer.Port
			if cmd.Flags().Changed("port") {
				port = flagPort
			}
			addr, started, err := publish(port, g, res, in.anchor)
			if err != nil {
				return err
			}
			if !started {
				fmt.Fprintf(cmd.ErrOrStderr(), "Updated running viewer: %s\n", ui.BoldCyan(addr+"/graph"))
				return nil
			}
			logger.Watch(vcfg)

			ui.PrintLogo(cmd.ErrOrStderr())
			fmt.Fprintf(cmd.ErrOrStderr(), "Viewer: %s\n", ui.BoldCyan(addr+"/graph"))
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Dim("Press Ctrl+C to stop"))

			<-cmd.Context().Done()
			zap.L().Info("viewer shutting down")
			return nil
		},
	}

	cmd.Flags().IntVar(&flagPort, "port", 7777, "HTTP port (overrides viewer.port)")

	return cmd
}

// publish sends the graph to a viewer already listening on port, or starts a
// new one. started reports whether this process now owns the server.
func publish(port int, g *graph.ProjectGraph, res *cpm.CPMResult, anchor cpm.Anchor) (addr string, started bool, err error) {
	hostport := fmt.Sprintf("localhost:%d", port)
	if viewer.IsPortOpen(hostport) {
		addr = "http://" + hostport
		zap.L().Debug("viewer already running", zap.String("addr", addr))
		if err := viewer.PostTasks(addr, viewer.InputFrom(g)); err != nil {
			return "", false, fmt.Errorf("update running viewer: %w", err)
		}
		return addr, false, nil
	}

	addr, err = viewer.Start(port, viewer.ToGraph(g, res, time.Now()), anchor)
	if err != nil {
		return "", false, err
	}
	return addr, true, nil
}

// --- Output helpers ---

func outputJSON(cmd *cobra.Command, v interface{}) error {
	data, err := reporter.JSON(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func logWarnings(warnings []diag.Warning) {
	for _, w := range warnings {
		zap.L().Warn(w.Message, zap.String("kind", string(w.Kind)), zap.Strings("tasks", w.TaskIDs))
	}
}
