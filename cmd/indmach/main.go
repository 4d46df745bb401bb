package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/indmach/internal/analysis"
	"github.com/san-kum/indmach/internal/config"
	"github.com/san-kum/indmach/internal/dynamo"
	"github.com/san-kum/indmach/internal/experiment"
	"github.com/san-kum/indmach/internal/export"
	"github.com/san-kum/indmach/internal/storage"
	"github.com/san-kum/indmach/internal/tui"
	"github.com/san-kum/indmach/internal/viz"
)

var (
	dataDir  string
	logLevel string
	logger   = zap.NewNop()

	configFile string
	preset     string
	setEdit    string
	dt         float64
	duration   float64
	kw         float64

	outPath     string
	plotSeries  []string
	sweepLimit  int
	saveResults bool

	analyzeSeries string
	analyzeFrom   float64
	analyzeFMax   float64
)

var defaultPlotSeries = []string{"slip", "is1", "v1", "p"}

func main() {
	rootCmd := &cobra.Command{
		Use:           "indmach",
		Short:         "induction machine power flow and dynamics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".indmach", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	pflowCmd := &cobra.Command{
		Use:   "pflow",
		Short: "solve the steady-state operating point",
		Args:  cobra.NoArgs,
		RunE:  runPowerFlow,
	}
	addConfigFlags(pflowCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a dynamic simulation and save it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotSeries, "series", defaultPlotSeries, "series to plot")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "export run plots as PNG images",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	exportPNGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output directory (default <data>/<run_id>/plots)")
	exportPNGCmd.Flags().StringSliceVar(&plotSeries, "series", defaultPlotSeries, "series to plot")

	exportHTMLCmd := &cobra.Command{
		Use:   "export-html [run_id]",
		Short: "export run plots as an interactive HTML page",
		Args:  cobra.ExactArgs(1),
		RunE:  exportHTML,
	}
	exportHTMLCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <data>/<run_id>/plots.html)")
	exportHTMLCmd.Flags().StringSliceVar(&plotSeries, "series", defaultPlotSeries, "series to plot")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a run series",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&analyzeSeries, "series", "speed", "series to analyze")
	analyzeCmd.Flags().Float64Var(&analyzeFrom, "from", 0, "ignore samples before this time (s)")
	analyzeCmd.Flags().Float64Var(&analyzeFMax, "fmax", 50, "highest frequency to plot (Hz)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("presets for %s:\n", config.DefaultModel)
			for _, p := range config.ListPresets(config.DefaultModel) {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	varsCmd := &cobra.Command{
		Use:   "vars",
		Short: "list monitored variables and their values after power flow",
		Args:  cobra.NoArgs,
		RunE:  listVars,
	}
	addConfigFlags(varsCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a dynamic simulation with a live terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep [edit]...",
		Short: "run one simulation per parameter edit, in parallel",
		Long: "Each argument is a parameter edit applied on top of the configuration,\n" +
			"for example: indmach sweep \"H=0.5\" \"H=1\" \"H=2\"",
		Args: cobra.MinimumNArgs(1),
		RunE: runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&sweepLimit, "parallel", 4, "maximum concurrent runs")
	sweepCmd.Flags().BoolVar(&saveResults, "save", false, "save every run")

	rootCmd.AddCommand(pflowCmd, runCmd, listCmd, plotCmd, exportJSONCmd, exportPNGCmd, exportHTMLCmd, analyzeCmd, presetsCmd, varsCmd, liveCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&setEdit, "set", "", "parameter edit, e.g. \"H=0.5 slip=0.01\"")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&kw, "kw", config.DefaultKW, "nominal power in kW, positive motoring")
}

// loadConfig builds the configuration from preset, then file, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(config.DefaultModel, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(config.DefaultModel))
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("kw") {
		cfg.Rating.KW = kw
	}
	if setEdit != "" {
		cfg.Set = strings.TrimSpace(cfg.Set + " " + setEdit)
	}
	return cfg, nil
}

func setupExperiment(cmd *cobra.Command) (*experiment.Experiment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	exp := experiment.New(cfg, logger)
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	return exp, nil
}

func runPowerFlow(cmd *cobra.Command, args []string) error {
	exp, err := setupExperiment(cmd)
	if err != nil {
		return err
	}

	sample, err := exp.PowerFlow(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println(viz.Sample("operating point", sample))
	fmt.Println(viz.Outputs("machine", exp.GetSimulator().Outputs()))
	return nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	exp, err := setupExperiment(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	cfg := exp.Config()
	fmt.Printf("running %s simulation...\n", cfg.Model)
	start := time.Now()

	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(cfg, preset, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	for _, e := range result.Errors {
		fmt.Println(viz.Warning.Render("  " + e.Error()))
	}
	fmt.Println()
	fmt.Println(viz.Metrics("metrics", result.Metrics))
	fmt.Println(viz.Outputs("final state", exp.GetSimulator().Outputs()))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tPRESET\tTIME\tDURATION\tDT\tSTEPS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\n",
			run.ID,
			run.Model,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Steps,
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, []dynamo.Sample, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("no data in run %s", runID)
	}
	return meta, samples, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", len(samples))

	for _, name := range plotSeries {
		graph, err := viz.PlotSeries(samples, name, export.Caption(name), 80, 10)
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}

	summary, err := viz.Summary(samples, plotSeries)
	if err != nil {
		return err
	}
	fmt.Println(summary)
	fmt.Println(viz.Metrics("metrics", meta.Metrics))
	return nil
}

// output opens path for writing, or returns stdout when path is empty.
func output(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w, err := output(outPath)
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(w, meta, samples); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func exportPNG(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	dir := outPath
	if dir == "" {
		dir = fmt.Sprintf("%s/%s/plots", dataDir, meta.ID)
	}
	paths, err := export.SavePNGs(dir, meta.Model+" "+meta.ID, samples, plotSeries)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func exportHTML(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	path := outPath
	if path == "" {
		path = fmt.Sprintf("%s/%s/plots.html", dataDir, meta.ID)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteHTML(f, meta.Model+" "+meta.ID, samples, plotSeries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args[0])
	if err != nil {
		return err
	}

	var window []dynamo.Sample
	for _, s := range samples {
		if s.T >= analyzeFrom {
			window = append(window, s)
		}
	}
	data, err := (&dynamo.Result{Samples: window}).Series(analyzeSeries)
	if err != nil {
		return err
	}

	spec, err := analysis.NewSpectrum(data, meta.Dt)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("model: %s\n\n", meta.Model)

	low := spec.Below(analyzeFMax)
	fmt.Println(viz.Plot(low.Amplitude, "amplitude spectrum ("+export.Caption(analyzeSeries)+")", 80, 15))
	fmt.Println()

	freq, amp := spec.Dominant()
	fmt.Printf("dominant frequency: %.3f hz (amplitude %.4g)\n", freq, amp)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

func listVars(cmd *cobra.Command, args []string) error {
	exp, err := setupExperiment(cmd)
	if err != nil {
		return err
	}
	if _, err := exp.PowerFlow(cmd.Context()); err != nil && !errors.Is(err, dynamo.ErrNotConverged) {
		return err
	}

	table := exp.GetSimulator().Table()
	values := make([]float64, table.NumVars())
	table.GetAllVars(values)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tVALUE")
	for i, name := range table.VarNames() {
		fmt.Fprintf(w, "%d\t%s\t%.6g\n", i+1, name, values[i])
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	exp, err := setupExperiment(cmd)
	if err != nil {
		return err
	}

	s := exp.GetSimulator()
	if _, err := s.SolvePowerFlow(cmd.Context()); err != nil {
		return err
	}
	s.InitDynamics()

	cfg := exp.Config()
	return tui.Run(s, cfg.Model, cfg.Duration)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := experiment.Sweep(cmd.Context(), cfg, args, sweepLimit, logger)
	if err != nil {
		return err
	}
	fmt.Printf("%d runs in %v\n\n", len(results), time.Since(start))

	var st *storage.Store
	if saveResults {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EDIT\tPEAK SLIP\tMIN V1\tMEAN IS1\tENERGY kWh\tERRORS\tRUN")
	for i, res := range results {
		runID := "-"
		if st != nil {
			c := *cfg
			c.Set = strings.TrimSpace(cfg.Set + " " + args[i])
			if runID, err = st.Save(&c, preset, res); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%.5f\t%.3f\t%.1f\t%.4f\t%d\t%s\n",
			args[i],
			res.Metrics["peak_slip"],
			res.Metrics["min_voltage_pu"],
			res.Metrics["mean_is1"],
			res.Metrics["energy_kwh"],
			len(res.Errors),
			runID,
		)
	}
	return w.Flush()
}
