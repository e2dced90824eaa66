// Command gltfx compresses, copies and validates glTF 2.0 assets.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
	"github.com/reoring/gltfx/codec/refcodec"
	"github.com/reoring/gltfx/ext/draco"
	"github.com/reoring/gltfx/ext/meshopt"
	"github.com/reoring/gltfx/functions"
	"github.com/reoring/gltfx/validate"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx := context.Background()
	sub := os.Args[1]
	switch sub {
	case "meshopt":
		meshoptCmd(ctx, os.Args[2:])
	case "draco":
		dracoCmd(ctx, os.Args[2:])
	case "copy":
		copyCmd(ctx, os.Args[2:])
	case "validate":
		os.Exit(validateCmd(ctx, os.Args[2:]))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `gltfx CLI

Usage:
  gltfx meshopt [flags] in.glb out.glb   compress with EXT_meshopt_compression
  gltfx draco [flags] in.glb out.glb     compress with KHR_draco_mesh_compression
  gltfx copy [flags] in.gltf out.glb     read and write without changes
  gltfx validate [flags] in.glb          report structural issues

Common flags:
  -config file.{yaml,toml}  defaults for every flag below
  -verbose                  debug logging
  -stats                    print raw, gzip and zstd output sizes`)
}

// common holds the flags every subcommand accepts.
type common struct {
	config  string
	verbose bool
	stats   bool
	layout  string
	workers int
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "YAML or TOML config file")
	fs.BoolVar(&c.verbose, "verbose", false, "debug logging")
	fs.BoolVar(&c.stats, "stats", false, "print output sizes")
	fs.StringVar(&c.layout, "layout", "", "vertex layout: interleaved|separate")
	fs.IntVar(&c.workers, "concurrency", 0, "parallel resource loads")
}

// load reads the config file and applies the flags set on the command line
// over it.
func (c *common) load(fs *flag.FlagSet) Config {
	cfg, err := loadConfig(c.config)
	if err != nil {
		fatalf("%v", err)
	}
	visit(fs, map[string]func(){
		"verbose":     func() { cfg.Verbose = c.verbose },
		"stats":       func() { cfg.Stats = c.stats },
		"layout":      func() { cfg.Layout = c.layout },
		"concurrency": func() { cfg.Concurrency = c.workers },
	})
	return cfg
}

// visit runs the setter of every flag given explicitly.
func visit(fs *flag.FlagSet, setters map[string]func()) {
	fs.Visit(func(f *flag.Flag) {
		if set, ok := setters[f.Name]; ok {
			set()
		}
	})
}

func newLogger(cfg Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func parseLayout(s string) (gltfx.VertexLayout, error) {
	switch strings.ToLower(s) {
	case "", "interleaved":
		return gltfx.LayoutInterleaved, nil
	case "separate":
		return gltfx.LayoutSeparate, nil
	}
	return 0, fmt.Errorf("unknown layout %q (want interleaved or separate)", s)
}

func parseMeshoptMethod(s string) (meshopt.Method, error) {
	switch m := meshopt.Method(strings.ToUpper(s)); m {
	case meshopt.MethodQuantize, meshopt.MethodFilter:
		return m, nil
	}
	return "", fmt.Errorf("unknown meshopt method %q (want quantize or filter)", s)
}

func parseDracoMethod(s string) (codec.DracoMethod, error) {
	switch m := codec.DracoMethod(strings.ToUpper(s)); m {
	case codec.DracoEdgebreaker, codec.DracoSequential:
		return m, nil
	}
	return "", fmt.Errorf("unknown draco method %q (want edgebreaker or sequential)", s)
}

// newIO returns an IO with every extension of this module registered and
// the reference codecs installed.
func newIO(cfg Config, logger *slog.Logger) (*gltfx.IO, func()) {
	layout, err := parseLayout(cfg.Layout)
	if err != nil {
		fatalf("%v", err)
	}
	c, err := refcodec.New()
	if err != nil {
		fatalf("codec: %v", err)
	}
	d := refcodec.NewDraco(c)
	x := gltfx.NewIO().
		SetLogger(logger).
		SetConcurrency(cfg.Concurrency).
		SetVertexLayout(layout).
		RegisterExtensions(meshopt.Type, draco.Type).
		RegisterDependencies(map[string]any{
			codec.MeshoptEncoderKey: c,
			codec.MeshoptDecoderKey: c,
			codec.DracoEncoderKey:   d,
			codec.DracoDecoderKey:   d,
		})
	return x, c.Close
}

// convert reads in, applies transforms and writes out.
func convert(ctx context.Context, cfg Config, in, out string, transforms ...gltfx.Transform) {
	logger := newLogger(cfg)
	x, done := newIO(cfg, logger)
	defer done()

	doc, err := x.Read(ctx, in)
	if err != nil {
		fatalf("read %s: %v", in, err)
	}
	if err := doc.Transform(ctx, transforms...); err != nil {
		fatalf("transform: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		fatalf("mkdir: %v", err)
	}
	if err := x.Write(ctx, out, doc); err != nil {
		fatalf("write %s: %v", out, err)
	}
	logger.Info("written", "in", in, "out", out)

	if cfg.Stats {
		for _, path := range []string{in, out} {
			data, err := os.ReadFile(path)
			if err != nil {
				fatalf("stats: %v", err)
			}
			s, err := measure(data)
			if err != nil {
				fatalf("stats: %v", err)
			}
			printSizes(os.Stdout, path, s)
		}
	}
}

// parseArgs parses args with fs and returns the positional arguments.
// Flags may follow positionals, as in "meshopt in.glb out.glb --method
// filter". Arguments after "--" are always positional.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return pos, nil
		}
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(pos, rest...), nil
		}
		pos = append(pos, rest[0])
		args = rest[1:]
	}
}

func inOut(fs *flag.FlagSet, args []string) (string, string) {
	pos, _ := parseArgs(fs, args)
	if len(pos) != 2 {
		fs.Usage()
		os.Exit(2)
	}
	return pos[0], pos[1]
}

func meshoptCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("meshopt", flag.ExitOnError)
	var c common
	var method string
	c.register(fs)
	fs.StringVar(&method, "method", "", "quantize|filter")
	in, out := inOut(fs, args)

	cfg := c.load(fs)
	visit(fs, map[string]func(){"method": func() { cfg.Meshopt.Method = method }})
	m, err := parseMeshoptMethod(cfg.Meshopt.Method)
	if err != nil {
		fatalf("%v", err)
	}
	convert(ctx, cfg, in, out, functions.Meshopt(functions.MeshoptOptions{Method: m}))
}

func dracoCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("draco", flag.ExitOnError)
	var c common
	var method string
	c.register(fs)
	fs.StringVar(&method, "method", "", "edgebreaker|sequential")
	in, out := inOut(fs, args)

	cfg := c.load(fs)
	visit(fs, map[string]func(){"method": func() { cfg.Draco.Method = method }})
	m, err := parseDracoMethod(cfg.Draco.Method)
	if err != nil {
		fatalf("%v", err)
	}
	convert(ctx, cfg, in, out, functions.Draco(functions.DracoOptions{
		Method:           m,
		QuantizationBits: cfg.Draco.QuantizationBits,
	}))
}

func copyCmd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("copy", flag.ExitOnError)
	var c common
	c.register(fs)
	in, out := inOut(fs, args)
	convert(ctx, c.load(fs), in, out)
}

// validateCmd returns the exit code: 1 when the asset has errors.
func validateCmd(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var c common
	var limit int
	var ignore string
	c.register(fs)
	fs.IntVar(&limit, "limit", 0, "maximum number of issues, negative for no limit")
	fs.StringVar(&ignore, "ignore", "", "comma-separated issue codes to drop")
	pos, _ := parseArgs(fs, args)
	if len(pos) != 1 {
		fs.Usage()
		return 2
	}
	in := pos[0]

	cfg := c.load(fs)
	visit(fs, map[string]func(){
		"limit":  func() { cfg.Validate.Limit = limit },
		"ignore": func() { cfg.Validate.Ignore = splitCSV(ignore) },
	})
	logger := newLogger(cfg)

	data, err := os.ReadFile(in)
	if err != nil {
		fatalf("read %s: %v", in, err)
	}
	loader := gltfx.DirLoader{Dir: filepath.Dir(in)}
	report, err := validate.New().ValidateBytes(ctx, data, validate.Options{
		MaxIssues:        cfg.Validate.Limit,
		Ignore:           cfg.Validate.Ignore,
		ExternalResource: loader.Load,
		Logger:           logger,
	})
	if err != nil {
		fatalf("validate: %v", err)
	}
	if err := report.Print(os.Stdout, validate.PrintOptions{Color: true}); err != nil {
		fatalf("print: %v", err)
	}
	if cfg.Stats {
		s, err := measure(data)
		if err != nil {
			fatalf("stats: %v", err)
		}
		printSizes(os.Stdout, in, s)
	}
	if report.Err() != nil {
		return 1
	}
	return 0
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
