package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"opticflow/pkg/opticflow"
	"opticflow/pkg/report"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	policy      string
	arithmetic  string
	serialPath  string
	baud        int
	framing     string
	overlayPath string
	compare     bool
	verbose     bool
	blur        bool

	rawLayout    string
	rawWidth     int
	rawHeight    int
	rawBigEndian bool
}

func parseFlags(args []string) (options, []string, error) {
	var o options
	fs := flag.NewFlagSet("opticflow", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: opticflow [flags] <frame1> <frame2>")
		fs.PrintDefaults()
	}
	fs.StringVar(&o.configPath, "config", "", "JSON configuration file")
	fs.StringVar(&o.policy, "policy", "", "classification policy: single_axis or compass")
	fs.StringVar(&o.arithmetic, "arithmetic", "", "tracker arithmetic: fixed or float")
	fs.StringVar(&o.serialPath, "serial", "", "also write direction lines to this serial port")
	fs.IntVar(&o.baud, "baud", 115200, "serial baud rate")
	fs.StringVar(&o.framing, "framing", "8N1", "serial data bits, parity and stop bits")
	fs.StringVar(&o.overlayPath, "overlay", "", "write a JPEG flow overlay to this path")
	fs.BoolVar(&o.compare, "compare", false, "compare against the OpenCV reference tracker")
	fs.BoolVar(&o.verbose, "v", false, "print per-feature results")
	fs.BoolVar(&o.blur, "blur", false, "blur frames before building pyramids")
	fs.StringVar(&o.rawLayout, "raw", "", "read headerless frames with this layout (gray, rgb565, rgb)")
	fs.IntVar(&o.rawWidth, "width", 0, "raw frame width (default from config)")
	fs.IntVar(&o.rawHeight, "height", 0, "raw frame height (default from config)")
	fs.BoolVar(&o.rawBigEndian, "big-endian", false, "raw rgb565 words are stored high byte first")
	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return o, nil, fmt.Errorf("expected two frames, got %d", fs.NArg())
	}
	return o, fs.Args(), nil
}

func run(args []string) error {
	opts, frames, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg := opticflow.DefaultConfig()
	if opts.configPath != "" {
		if cfg, err = opticflow.LoadConfig(opts.configPath); err != nil {
			return err
		}
	}
	if opts.policy != "" {
		if err := cfg.Policy.UnmarshalText([]byte(opts.policy)); err != nil {
			return err
		}
	}
	if opts.arithmetic != "" {
		cfg.Arithmetic = opts.arithmetic
	}
	if opts.blur {
		cfg.PreBlur = true
	}

	frame1, layout, w, h, err := loadInput(frames[0], opts, cfg)
	if err != nil {
		return err
	}
	frame2, _, w2, h2, err := loadInput(frames[1], opts, cfg)
	if err != nil {
		return err
	}
	if w != w2 || h != h2 {
		return fmt.Errorf("frame sizes differ: %dx%d and %dx%d", w, h, w2, h2)
	}
	cfg.Width, cfg.Height = w, h

	est, err := opticflow.NewEstimator(cfg)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if opts.serialPath != "" {
		portOpts, err := report.PortOptions{BaudRate: opts.baud}.WithFraming(opts.framing)
		if err != nil {
			return err
		}
		port, err := report.OpenSerial(opts.serialPath, portOpts)
		if err != nil {
			return err
		}
		defer port.Close()
		out = io.MultiWriter(os.Stdout, port)
	}
	reporter := report.NewReporter(out, opts.verbose)

	fmt.Printf("Frames: %s -> %s (%dx%d %s, %d levels, %s arithmetic)\n",
		frames[0], frames[1], w, h, layout, cfg.Levels, cfg.Arithmetic)

	start := time.Now()
	rep, err := estimate(est, frame1, frame2, layout)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	m := rep.Motion
	fmt.Println()
	fmt.Printf("=== Optical Flow (%s) ===\n", elapsed.Round(time.Microsecond))
	fmt.Printf("  Features:   %d (fallback: %t)\n", len(rep.Features), rep.Fallback)
	fmt.Printf("  Valid:      %d/%d\n", m.Valid, m.Total)
	fmt.Printf("  Sum:        dx=%.3f dy=%.3f px\n", m.Sum.X.Float(), m.Sum.Y.Float())
	fmt.Printf("  Mean:       dx=%.3f dy=%.3f px\n", m.Mean.X.Float(), m.Mean.Y.Float())
	fmt.Printf("  Magnitude:  %.3f px at %.1f deg\n", m.Magnitude, m.AngleDeg)
	fmt.Printf("  Policy:     %s\n", cfg.Policy)
	fmt.Println("==============================")

	if err := reporter.Report(rep); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	prev, cur := est.LastPair()
	if opts.overlayPath != "" {
		if err := opticflow.RenderFlowOverlay(prev.Level(0), rep, opts.overlayPath); err != nil {
			return err
		}
		fmt.Printf("Overlay written to %s\n", opts.overlayPath)
	}

	if opts.compare {
		if err := compareReference(prev.Level(0), cur.Level(0), rep); err != nil {
			return err
		}
	}
	return nil
}

// estimate tracks frame2 against frame1. Packed RGB565 frames go through the
// word-based entry point the camera path uses.
func estimate(est *opticflow.Estimator, frame1, frame2 []byte, layout opticflow.PixelLayout) (*opticflow.Report, error) {
	if layout != opticflow.LayoutRGB565 {
		return est.Estimate(frame1, frame2, layout)
	}
	est.Reset()
	if _, err := est.ProcessRGB565(opticflow.RGB565Words(frame1)); err != nil {
		return nil, fmt.Errorf("reference frame: %w", err)
	}
	return est.ProcessRGB565(opticflow.RGB565Words(frame2))
}

func loadInput(path string, opts options, cfg opticflow.Config) ([]byte, opticflow.PixelLayout, int, int, error) {
	if opts.rawLayout == "" {
		return loadFrame(path)
	}
	layout, err := opticflow.ParsePixelLayout(opts.rawLayout)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	format := opticflow.RawFrameFormat{
		Layout:    layout,
		Width:     cfg.Width,
		Height:    cfg.Height,
		BigEndian: opts.rawBigEndian,
	}
	if opts.rawWidth > 0 {
		format.Width = opts.rawWidth
	}
	if opts.rawHeight > 0 {
		format.Height = opts.rawHeight
	}
	buf, err := opticflow.ReadRawFrame(path, format)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	return buf, layout, format.Width, format.Height, nil
}

func compareReference(prev, cur *opticflow.Image, rep *opticflow.Report) error {
	ref, err := opticflow.ReferenceFlow(prev, cur, rep.Features)
	if errors.Is(err, opticflow.ErrReferenceUnavailable) {
		fmt.Println("Reference comparison skipped: built without OpenCV")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reference flow: %w", err)
	}

	errs, err := opticflow.CompareFlow(rep.Results, ref)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("=== OpenCV Reference ===")
	for i, r := range ref {
		if !r.Valid {
			fmt.Printf("  #%d lost\n", i)
			continue
		}
		d := r.Displacement()
		fmt.Printf("  #%d (%.1f,%.1f) dx=%.3f dy=%.3f\n", i, r.Input.X, r.Input.Y, d.X, d.Y)
	}
	if len(errs) == 0 {
		fmt.Println("  No feature valid in both trackers")
		fmt.Println("==============================")
		return nil
	}
	mean, std := stat.MeanStdDev(errs, nil)
	slices.Sort(errs)
	median := stat.Quantile(0.5, stat.Empirical, errs, nil)
	fmt.Printf("  Error:      mean %.3f +/- %.3f px, median %.3f px (n=%d)\n", mean, std, median, len(errs))
	fmt.Println("==============================")
	return nil
}
