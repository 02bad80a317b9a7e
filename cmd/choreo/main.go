package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/choreo/internal/analysis"
	"github.com/san-kum/choreo/internal/config"
	"github.com/san-kum/choreo/internal/logging"
	"github.com/san-kum/choreo/internal/monitor"
	"github.com/san-kum/choreo/internal/scenario"
	"github.com/san-kum/choreo/internal/signal"
	"github.com/san-kum/choreo/internal/storage"
	"github.com/san-kum/choreo/internal/trace"
)

var (
	dataDir    string
	backend    string
	configFile string
	preset     string
	logLevel   string
	logJSON    bool

	seed     int64
	duration float64
	runs     int

	field     string
	plotField string
	outFile   string
	full      bool
	width     int
	height    int

	frameRate int
	addr      string
	broker    string
	topic     string
	origins   []string

	param       string
	paramMin    float64
	paramMax    float64
	steps       int
	metric      string
	sweepMetric string
	gridSpecs   []string
)

// main registers the choreo commands and exits 1 when one fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "choreo",
		Short:         "scroll and pointer driven motion state engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&backend, "storage", "", "trace storage backend (file or sqlite)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log JSON lines instead of console output")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "play a scenario and record its trace",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed for synthetic input")
	runCmd.Flags().Float64Var(&duration, "time", 0, "override scenario duration (s)")
	runCmd.Flags().IntVar(&runs, "runs", 1, "number of seeds to play in parallel")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot live fields of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotField, "field", "", "field to plot (default: every field)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().BoolVar(&full, "full", false, "include every sample and target")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw one field of a run as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&field, "field", signal.Intensity, "field to draw")
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&width, "width", 800, "image width (px)")
	exportSVGCmd.Flags().IntVar(&height, "height", 300, "image height (px)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis and flicker check",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&field, "field", signal.Intensity, "field to analyze")

	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "list section profiles and aliases",
		RunE:  listProfiles,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list built-in scenarios",
		RunE:  listScenarios,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [scenario]",
		Short: "measure engine throughput",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScenario,
	}

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "drive an engine in a terminal monitor",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().IntVar(&frameRate, "fps", 0, "frame rate")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the engine over websocket",
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address")
	serveCmd.Flags().IntVar(&frameRate, "fps", 0, "frame rate")
	serveCmd.Flags().StringVar(&broker, "mqtt", "", "MQTT broker url, e.g. tcp://localhost:1883")
	serveCmd.Flags().StringVar(&topic, "topic", "", "MQTT topic prefix")
	serveCmd.Flags().StringSliceVar(&origins, "origin", nil, "allowed websocket origin patterns")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "replay a scenario across values of one knob",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&param, "param", "hysteresis", "knob to sweep")
	sweepCmd.Flags().Float64Var(&paramMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&paramMax, "max", 0.3, "last value")
	sweepCmd.Flags().IntVar(&steps, "steps", 7, "number of values")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "", "metric to show (default: all)")
	sweepCmd.Flags().Int64Var(&seed, "seed", 0, "random seed for synthetic input")
	sweepCmd.Flags().Float64Var(&duration, "time", 0, "override scenario duration (s)")

	tuneCmd := &cobra.Command{
		Use:   "tune [scenario]",
		Short: "grid search knobs that minimize a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	tuneCmd.Flags().StringArrayVar(&gridSpecs, "grid", nil, "knob=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&metric, "metric", "tracking_error", "metric to minimize")
	tuneCmd.Flags().Int64Var(&seed, "seed", 0, "random seed for synthetic input")
	tuneCmd.Flags().Float64Var(&duration, "time", 0, "override scenario duration (s)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportSVGCmd, analyzeCmd,
		profilesCmd, presetsCmd, scenariosCmd, benchCmd, liveCmd, serveCmd,
		sweepCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig starts from the preset, applies the config file and then the
// persistent flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fileCfg
	}

	flags := cmd.Flags()
	if flags.Changed("data") || cfg.Storage.Dir == "" {
		cfg.Storage.Dir = dataDir
	}
	if flags.Changed("storage") {
		cfg.Storage.Backend = backend
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.Pretty = !logJSON
	}
	if flags.Lookup("fps") != nil && flags.Changed("fps") {
		cfg.FPS = frameRate
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)
}

func openStore(cmd *cobra.Command) (storage.Store, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	st, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Dir)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Init(); err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, cfg, nil
}

func resolveScenario(cmd *cobra.Command, cfg *config.Config, args []string) (*scenario.Scenario, error) {
	name := "pointer-burst"
	if len(args) > 0 {
		name = args[0]
	}
	sc, err := scenario.Resolve(name)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Lookup("seed") != nil && cmd.Flags().Changed("seed") {
		sc.Seed = seed
	} else if cfg.Seed != 0 {
		sc.Seed = cfg.Seed
	}
	if cmd.Flags().Lookup("time") != nil && cmd.Flags().Changed("time") {
		sc.Duration = duration
	}
	return sc, sc.Validate()
}

func runScenario(cmd *cobra.Command, args []string) error {
	st, cfg, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	sc, err := resolveScenario(cmd, cfg, args)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	runner := scenario.NewRunner(cfg, scenario.WithLogger(log))

	fmt.Printf("running %s scenario...\n", sc.Name)
	start := time.Now()

	var traces []*trace.Trace
	if runs > 1 {
		traces, err = scenario.NewEnsemble(runner, runs, sc.Seed).Run(context.Background(), sc)
	} else {
		var tr *trace.Trace
		tr, err = runner.Run(context.Background(), sc)
		traces = []*trace.Trace{tr}
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	for _, tr := range traces {
		runID, err := st.Save(tr)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s (seed %d)\n", runID, tr.Meta.Seed)
		fmt.Printf("ticks: %s, emits: %s\n", humanize.Comma(int64(tr.Meta.Ticks)), humanize.Comma(int64(tr.Meta.Emits)))
		printMetrics(tr.Meta.Metrics)
	}
	fmt.Printf("\ncompleted in %v\n", elapsed)
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("metrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	metas, err := st.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tPRESET\tWHEN\tDURATION\tTICKS\tEMITS")
	for _, run := range metas {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%s\t%s\n",
			run.ID,
			run.Scenario,
			run.Preset,
			humanize.Time(run.Timestamp),
			run.DurationMs/1000,
			humanize.Comma(int64(run.Ticks)),
			humanize.Comma(int64(run.Emits)),
		)
	}
	return w.Flush()
}

func loadTrace(cmd *cobra.Command, runID string) (*trace.Trace, error) {
	st, _, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.LoadTrace(runID)
}

func plotRun(cmd *cobra.Command, args []string) error {
	tr, err := loadTrace(cmd, args[0])
	if err != nil {
		return err
	}
	if len(tr.Samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", tr.Meta.ID)
	fmt.Printf("scenario: %s\n", tr.Meta.Scenario)
	fmt.Printf("samples: %s\n\n", humanize.Comma(int64(len(tr.Samples))))

	fields := tr.Fields()
	if plotField != "" {
		fields = []string{plotField}
	}
	for _, f := range fields {
		graph := asciigraph.Plot(tr.Column(f),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(f+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	tr, err := loadTrace(cmd, args[0])
	if err != nil {
		return err
	}
	if !full {
		tr.Samples = nil
	}
	return storage.WriteJSON(os.Stdout, tr)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	tr, err := loadTrace(cmd, args[0])
	if err != nil {
		return err
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := storage.WriteCSV(out, tr); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Fprintf(os.Stderr, "exported %s samples to %s\n", humanize.Comma(int64(len(tr.Samples))), outFile)
	}
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	tr, err := loadTrace(cmd, args[0])
	if err != nil {
		return err
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := storage.WriteSVG(out, tr, field, width, height); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Fprintf(os.Stderr, "wrote %s to %s\n", field, outFile)
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	tr, err := loadTrace(cmd, args[0])
	if err != nil {
		return err
	}
	spec, err := analysis.Analyze(tr, field)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", tr.Meta.ID)
	fmt.Printf("field: %s, sample rate %.1f hz\n\n", field, spec.SampleRate)

	if len(spec.Power) > 1 {
		graph := asciigraph.Plot(spec.Power,
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum ("+field+")"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	freq, _ := spec.Dominant()
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	ratio := spec.FlickerRatio()
	fmt.Printf("flicker ratio (>= %.0f hz): %.3f\n", analysis.FlickerHz, ratio)

	portrait := analysis.GeneratePhasePortrait(tr, field)
	fmt.Printf("peak rate: %.3f /s\n", portrait.PeakRate())
	if ratio > 0.2 {
		fmt.Println("warning: visible flicker")
	}
	return nil
}

func listProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tPRESET\tINTENSITY\tCHAOS\tSPEED\tHUE\tFORM\tGEOMETRY")
	for _, key := range reg.Keys() {
		p, _ := reg.Get(key)
		form := "-"
		if p.HasForm() {
			form = fmt.Sprintf("%s (%.2f)", p.Form, p.FormMix)
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.0f\t%s\t%.0f\n",
			key, p.Preset, p.Intensity, p.Chaos, p.Speed, p.Hue, form, p.Geometry)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	aliases := reg.Aliases()
	if len(aliases) == 0 {
		return nil
	}
	names := make([]string, 0, len(aliases))
	for a := range aliases {
		names = append(names, a)
	}
	sort.Strings(names)
	fmt.Println("\naliases:")
	for _, a := range names {
		fmt.Printf("  %s -> %s\n", a, aliases[a])
	}
	return nil
}

func listScenarios(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDURATION\tDESCRIPTION")
	for _, name := range scenario.List() {
		sc, err := scenario.Builtin(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%.1fs\t%s\n", sc.Name, sc.Duration, sc.Description)
	}
	return w.Flush()
}

func benchScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := resolveScenario(cmd, cfg, args)
	if err != nil {
		return err
	}
	runner := scenario.NewRunner(cfg)

	fmt.Printf("benchmarking %s\n\n", sc.Name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DURATION\tDT\tTICKS\tTIME\tTICKS/SEC\tREALTIME")

	for _, dur := range []float64{cfg.Duration / 10, cfg.Duration, cfg.Duration * 6} {
		for _, dt := range []float64{8, 16, 33} {
			c := sc.Clone()
			c.Duration = dur
			c.Dt = dt

			start := time.Now()
			tr, err := runner.Run(context.Background(), c)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			ticks := len(tr.Samples)
			perSec := float64(ticks) / math.Max(elapsed.Seconds(), 1e-9)
			speedup := dur / math.Max(elapsed.Seconds(), 1e-9)
			fmt.Fprintf(w, "%.1fs\t%.0fms\t%s\t%v\t%s\t%sx\n",
				dur, dt, humanize.Comma(int64(ticks)), elapsed.Round(time.Microsecond),
				humanize.SIWithDigits(perSec, 1, ""), humanize.FormatFloat("#,###.", speedup))
		}
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := resolveScenario(cmd, cfg, args)
	if err != nil {
		return err
	}

	// the monitor owns the terminal, keep logs quiet
	m, err := monitor.New(cfg, sc, zerolog.Nop())
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
