package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/typeshape/builder"
	"github.com/wippyai/typeshape/pretty"
	"github.com/wippyai/typeshape/shape"
)

func main() {
	var (
		typeName    = flag.String("type", "", "Catalog type to work with")
		from        = flag.String("from", "json", "Input format (json, msgpack, cbor, toml, yaml)")
		to          = flag.String("to", "pretty", "Output format (json, msgpack, cbor, toml, yaml, pretty)")
		inFile      = flag.String("in", "-", "Input file, - for stdin")
		outFile     = flag.String("out", "-", "Output file, - for stdout")
		list        = flag.Bool("list", false, "List catalog types and exit")
		showShape   = flag.Bool("shape", false, "Print the shape of -type and exit")
		sample      = flag.Bool("sample", false, "Encode the sample value of -type instead of reading input")
		colorMode   = flag.String("color", "auto", "Colour output: auto, always, never")
		reveal      = flag.Bool("reveal", false, "Print sensitive fields")
		verbose     = flag.Bool("v", false, "Log builder and shape events to stderr")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	defer func() { _ = logger.Sync() }()
	shape.SetLogger(logger.Named("shape"))
	builder.SetLogger(logger.Named("builder"))

	if *interactive {
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *list {
		for _, name := range catalogNames() {
			fmt.Printf("%-10s %s\n", name, catalog[name].doc)
		}
		return
	}

	if *typeName == "" {
		fmt.Fprintln(os.Stderr, "Usage: shapectl -type <name> [-from json] [-to pretty] [-in file] [-out file]")
		fmt.Fprintln(os.Stderr, "       shapectl -type <name> -shape")
		fmt.Fprintln(os.Stderr, "       shapectl -type <name> -sample -to json")
		fmt.Fprintln(os.Stderr, "       shapectl -list")
		fmt.Fprintln(os.Stderr, "       shapectl -i  (interactive mode)")
		os.Exit(1)
	}

	opts := options{
		typeName: *typeName,
		from:     *from,
		to:       *to,
		inFile:   *inFile,
		outFile:  *outFile,
		describe: *showShape,
		sample:   *sample,
		reveal:   *reveal,
		color:    *colorMode,
	}
	if err := run(opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	typeName string
	from     string
	to       string
	inFile   string
	outFile  string
	color    string
	describe bool
	sample   bool
	reveal   bool
}

func run(opts options, logger *zap.Logger) error {
	e, err := lookup(opts.typeName)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if opts.outFile != "-" {
		f, err := os.Create(opts.outFile)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	color, err := useColor(opts.color, out)
	if err != nil {
		return err
	}

	if opts.describe {
		_, err := fmt.Fprintln(out, describe(e.shape, color))
		return err
	}

	cfg := &pretty.Config{Color: color, ShowSensitive: opts.reveal}
	var data []byte
	if opts.sample {
		enc, err := encoderFor(opts.to, cfg)
		if err != nil {
			return err
		}
		data, err = enc.encode(e.sample())
		if err != nil {
			return fmt.Errorf("encode %s: %w", opts.to, err)
		}
	} else {
		input, err := readInput(opts.inFile)
		if err != nil {
			return err
		}
		logger.Debug("transcoding",
			zap.String("type", e.shape.Name()),
			zap.String("from", opts.from),
			zap.String("to", opts.to),
			zap.Int("bytes", len(input)),
		)
		if data, err = transcode(e.shape, input, opts.from, opts.to, cfg); err != nil {
			return err
		}
	}

	if f, ok := formats[opts.to]; ok && f.binary && isTerminal(out) {
		return fmt.Errorf("refusing to write %s to a terminal, use -out", opts.to)
	}
	_, err = out.Write(data)
	return err
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func useColor(mode string, out io.Writer) (bool, error) {
	switch strings.ToLower(mode) {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		return isTerminal(out) && os.Getenv("NO_COLOR") == "", nil
	}
	return false, fmt.Errorf("invalid -color %q", mode)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
