package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/df07/go-enhanced-svg/pkg/config"
	"github.com/df07/go-enhanced-svg/pkg/core"
	"github.com/df07/go-enhanced-svg/pkg/importer"
	"github.com/df07/go-enhanced-svg/pkg/layout"
	"github.com/df07/go-enhanced-svg/pkg/loaders"
	"github.com/df07/go-enhanced-svg/pkg/logging"
	"github.com/df07/go-enhanced-svg/pkg/scene"
	"github.com/df07/go-enhanced-svg/web/server"
)

// app holds the state shared by all commands
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	config config.Config
	logger *zap.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// importFlags are the flags of the import command
type importFlags struct {
	variant      string
	preprocessor string
	step         float64
	position     string
	scale        string
	json         bool
}

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := a.run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// run executes the command line and flushes the logger, also when the
// command fails.
func (a *app) run(args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(a.stderr, "Error:", err)
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "enhanced-svg",
		Short: "Import SVG documents into a scene with deduplicated emissive materials",
		Long: `enhanced-svg imports SVG documents into an in-memory 3D scene and normalizes
the result: groups are renamed after the import variant, emissive imports
share one opacity-aware material per fill color, and objects can be stacked
along Z with a fixed step.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (.yaml, .toml or .hcl)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (console or json)")

	root.AddCommand(a.importCmd(), a.serveCmd(), a.watchCmd())
	return root
}

// setup loads the configuration and builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	a.config = config.Default()
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.config = cfg
	}
	if a.logLevel != "" {
		a.config.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.config.Logging.Format = a.logFormat
	}

	logger, err := logging.New(a.config.Logging.Level, a.config.Logging.Format)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) importCmd() *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "import [FILES|DIRS]...",
		Short: "Import SVG files and print the resulting scene",
		Long: `Imports each SVG file (directories are scanned for .svg files) with the
selected variant. Without arguments the path is read from stdin.

Variants:
  simple     import as is
  processed  run the preprocessor first and keep its output on the group
  emission   processed, then set up opacity and deduplicate materials by color`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.variant, "variant", "v", "", "import variant (simple, processed, emission)")
	cmd.Flags().StringVar(&flags.preprocessor, "preprocessor", "", "preprocessor command, reads stdin and writes stdout")
	cmd.Flags().Float64Var(&flags.step, "step", 0, "elevation step between stacked objects")
	cmd.Flags().StringVar(&flags.position, "position", "", "move every object of the last group to x,y,z")
	cmd.Flags().StringVar(&flags.scale, "scale", "1", "scale applied with --position, uniform s or per-axis x,y,z")
	cmd.Flags().BoolVar(&flags.json, "json", false, "print the scene as JSON")
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, args []string, flags importFlags) error {
	variantName := a.config.Import.Variant
	if flags.variant != "" {
		variantName = flags.variant
	}
	variant, err := importer.ParseVariant(variantName)
	if err != nil {
		return err
	}

	im, err := a.newImporter(scene.New(), flags.preprocessor)
	if err != nil {
		return err
	}
	im.WithSelector(importer.NewPromptSelector(a.stdin, a.stderr))

	requests, err := collectRequests(args, variant)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var last *scene.Group
	var failures []error
	for _, req := range requests {
		res, err := im.Import(ctx, req)
		switch {
		case err == nil:
			last = res.Group
		case importer.IsWarning(err):
			// already reported by the importer
		default:
			failures = append(failures, err)
		}
	}

	sc := im.Scene()
	if last != nil {
		step := a.config.Elevation.Step
		if cmd.Flags().Changed("step") {
			step = flags.step
		}
		target := last
		if name := a.config.Elevation.Target; name != "" {
			if g, ok := sc.Group(name); ok {
				target = g
			}
		}
		layout.NewController(sc, a.logger.Named("layout")).Set(layout.ElevationConfig{Target: target, Step: step})

		if flags.position != "" {
			pos, err := parseVec3(flags.position)
			if err != nil {
				return err
			}
			scale, err := parseScale(flags.scale)
			if err != nil {
				return err
			}
			layout.Place(last, pos, scale)
		}
	}

	if flags.json {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sc.Snapshot()); err != nil {
			return fmt.Errorf("failed to write scene: %w", err)
		}
	} else {
		printSummary(a.stdout, sc)
	}

	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	return nil
}

// newImporter builds an importer from the configuration. A non-empty
// preprocessor command overrides the configured one.
func (a *app) newImporter(sc *scene.Scene, preprocessor string) (*importer.Importer, error) {
	im := importer.New(sc, loaders.NewSVGImporter(a.logger.Named("svg")), importer.Options{
		ScaleFactor: a.config.Import.ScaleFactor,
		TempDir:     a.config.Import.TempDir,
	}, a.logger.Named("importer"))

	command := a.config.Import.Preprocessor
	if preprocessor != "" {
		command = preprocessor
	}
	if command != "" {
		pre, err := importer.NewCommandPreprocessor(command)
		if err != nil {
			return nil, err
		}
		im.WithPreprocessor(pre)
	}
	return im, nil
}

// collectRequests expands directories; no arguments means one dialog import
func collectRequests(args []string, variant importer.Variant) ([]importer.Request, error) {
	if len(args) == 0 {
		return []importer.Request{{Variant: variant, Invocation: importer.DialogSelected}}, nil
	}

	var requests []importer.Request
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			files, err := loaders.DiscoverSVG(arg)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				requests = append(requests, importer.Request{Path: f.FilePath, Variant: variant})
			}
			continue
		}
		requests = append(requests, importer.Request{Path: arg, Variant: variant})
	}
	return requests, nil
}

func printSummary(w io.Writer, sc *scene.Scene) {
	for _, g := range sc.Groups() {
		fmt.Fprintf(w, "%s (%d objects)\n", g.Name(), g.Len())
		for _, obj := range g.Objects() {
			mats := make([]string, 0, 1)
			for _, m := range obj.Materials() {
				mats = append(mats, m.Name)
			}
			fmt.Fprintf(w, "  %-12s %-6s z=%-8g %s\n", obj.Name(), obj.Kind, obj.Transform.Location.Z, strings.Join(mats, ","))
		}
	}
	fmt.Fprintf(w, "%d materials\n", sc.Materials.Len())
}

// parseVec3 parses "x,y,z"
func parseVec3(s string) (core.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return core.Vec3{}, fmt.Errorf("invalid position %q: expected x,y,z", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return core.Vec3{}, fmt.Errorf("invalid position %q: %w", s, err)
		}
		v[i] = f
	}
	return core.NewVec3(v[0], v[1], v[2]), nil
}

// parseScale parses a uniform "s" or a per-axis "x,y,z" scale
func parseScale(s string) (core.Vec3, error) {
	if !strings.Contains(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return core.Vec3{}, fmt.Errorf("invalid scale %q: %w", s, err)
		}
		return core.One().Multiply(f), nil
	}
	return parseVec3(s)
}

func (a *app) serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the import API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.config.Server.Port = port
			}
			srv, err := server.NewServer(a.config, a.logger.Named("server"))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Start(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to serve on")
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch FILE",
		Short: "Import a file and restack it whenever the config file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath == "" {
				return errors.New("watch requires --config")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, args[0])
		},
	}
}

func (a *app) runWatch(ctx context.Context, path string) error {
	sc := scene.New()
	im, err := a.newImporter(sc, "")
	if err != nil {
		return err
	}
	res, err := im.Import(ctx, importer.Request{Path: path, Variant: a.config.Variant()})
	if err != nil {
		return err
	}

	var mu sync.Mutex
	controller := layout.NewController(sc, a.logger.Named("layout"))
	apply := func(cfg config.Config) {
		mu.Lock()
		defer mu.Unlock()
		target := res.Group
		if g, ok := sc.Group(cfg.Elevation.Target); ok {
			target = g
		}
		plan := controller.Set(layout.ElevationConfig{Target: target, Step: cfg.Elevation.Step})
		a.logger.Info("Restacked",
			zap.String("group", target.Name()),
			zap.Float64("step", cfg.Elevation.Step),
			zap.Int("objects", len(plan)))
	}
	apply(a.config)

	w, err := config.NewWatcher(a.configPath, apply, a.logger.Named("config"))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	<-ctx.Done()
	return nil
}
