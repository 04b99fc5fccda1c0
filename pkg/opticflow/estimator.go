package opticflow

import (
	"errors"
	"fmt"
	"strings"
)

// Estimator runs the full pipeline on a stream of frames. The first frame
// only becomes the reference; every later frame is tracked against the one
// before it. All buffers are sized in NewEstimator. An Estimator is not safe
// for concurrent use.
type Estimator struct {
	cfg        Config
	arena      *Arena
	selector   *FeatureSelector
	tracker    *PyramidTracker
	classifier ClassifierConfig
	region     Region

	// ref indexes the reference pyramid in arena.Pyramids, or -1 before the
	// first frame.
	ref int

	// features double-buffers the selected points so a returned Report
	// stays valid while the next reference frame is being selected.
	features    [2][]FeaturePoint
	refFeatures int
	numFeatures int
	fallback    bool

	// tracked is set once a pair has been tracked since the last Reset.
	tracked bool
	// lost is the lost-feature count of the previous pair; diagnostics are
	// logged only when it changes.
	lost int

	results []FlowResult
	report  Report
	frame   int
}

func NewEstimator(cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	arena, err := NewArena(cfg.Width, cfg.Height, cfg.Levels)
	if err != nil {
		return nil, err
	}
	tracker, err := NewPyramidTracker(cfg)
	if err != nil {
		return nil, err
	}
	e := &Estimator{
		cfg:        cfg,
		arena:      arena,
		selector:   NewFeatureSelector(cfg),
		tracker:    tracker,
		classifier: cfg.ClassifierConfig(),
		region:     CenterRegion(cfg.Width, cfg.Height, cfg.SearchRadius),
		ref:        -1,
		results:    make([]FlowResult, cfg.MaxFeatures),
	}
	for i := range e.features {
		e.features[i] = make([]FeaturePoint, cfg.MaxFeatures)
	}
	return e, nil
}

func (e *Estimator) Config() Config { return e.cfg }

// Reset drops the reference frame; the next Process call starts a new pair.
func (e *Estimator) Reset() {
	e.ref = -1
	e.numFeatures = 0
	e.fallback = false
	e.tracked = false
	e.lost = 0
}

// Process normalizes src and tracks it against the previous frame. It
// returns a nil Report and nil error for the first frame after construction
// or Reset. The returned Report is owned by the Estimator and is overwritten
// by the next call.
func (e *Estimator) Process(src []byte, layout PixelLayout) (*Report, error) {
	bpp := layout.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("unsupported pixel layout %d", int(layout))
	}
	if want := e.cfg.Width * e.cfg.Height * bpp; len(src) < want {
		return nil, fmt.Errorf("%s frame has %d bytes, need %d: %w", layout, len(src), want, ErrFrameSize)
	}
	Normalize(&e.arena.Gray, src, layout)
	return e.processNormalized()
}

// ProcessRGB565 is Process for packed 5-6-5 pixels delivered as words.
func (e *Estimator) ProcessRGB565(src []uint16) (*Report, error) {
	if want := e.cfg.Width * e.cfg.Height; len(src) < want {
		return nil, fmt.Errorf("rgb565 frame has %d pixels, need %d: %w", len(src), want, ErrFrameSize)
	}
	NormalizeRGB565(&e.arena.Gray, src)
	return e.processNormalized()
}

// Estimate computes the motion between two frames, discarding any reference
// held from earlier calls.
func (e *Estimator) Estimate(frame1, frame2 []byte, layout PixelLayout) (*Report, error) {
	e.Reset()
	if _, err := e.Process(frame1, layout); err != nil {
		return nil, fmt.Errorf("reference frame: %w", err)
	}
	return e.Process(frame2, layout)
}

// Reference returns the current reference pyramid, or nil before the first
// frame.
func (e *Estimator) Reference() *Pyramid {
	if e.ref < 0 {
		return nil
	}
	return &e.arena.Pyramids[e.ref]
}

// LastPair returns the pyramids of the most recently tracked frame pair,
// previous frame first, or nil until a pair has been tracked. They stay
// valid until the next Process call.
func (e *Estimator) LastPair() (prev, cur *Pyramid) {
	if !e.tracked {
		return nil, nil
	}
	return &e.arena.Pyramids[1-e.ref], &e.arena.Pyramids[e.ref]
}

func (e *Estimator) processNormalized() (*Report, error) {
	base := &e.arena.Gray
	if e.cfg.PreBlur {
		Blur3x3(&e.arena.Scratch, base)
		base = &e.arena.Scratch
	}

	cur := 0
	if e.ref == 0 {
		cur = 1
	}
	if err := e.arena.Pyramids[cur].Build(base); err != nil {
		return nil, err
	}
	e.frame++
	savePyramid(&e.arena.Pyramids[cur], e.cfg.DebugDir, e.frame)

	if e.ref < 0 {
		e.adopt(cur)
		return nil, nil
	}

	refPyr, curPyr := &e.arena.Pyramids[e.ref], &e.arena.Pyramids[cur]
	features := e.features[e.refFeatures][:e.numFeatures]
	results := e.results[:len(features)]
	lost, first := 0, -1
	for i, f := range features {
		results[i] = e.tracker.Track(refPyr, curPyr, &e.arena.Grads, f.Pos)
		if !results[i].Valid {
			if first < 0 {
				first = i
			}
			lost++
		}
	}
	if lost != e.lost && lost > 0 {
		Logf("opticflow: %d of %d features lost, first at %v: %v",
			lost, len(features), features[first].Pos, results[first].Err)
	}
	e.lost = lost
	e.tracked = true

	e.report = Report{
		Features: features,
		Results:  results,
		Motion:   Aggregate(results, e.classifier),
		Fallback: e.fallback,
	}
	e.maybeSaveReport()

	e.adopt(cur)
	return &e.report, nil
}

// adopt makes pyramid idx the reference: its gradients are computed and
// features selected into the spare feature buffer.
func (e *Estimator) adopt(idx int) {
	pyr := &e.arena.Pyramids[idx]
	e.arena.Grads.Build(pyr)

	next := 1 - e.refFeatures
	out := e.features[next]
	n, err := e.selector.Select(e.arena.Grads.Level(0), e.region, out)
	fallback := errors.Is(err, ErrNoFeature)
	if fallback {
		center := Pt(e.cfg.Width/2, e.cfg.Height/2)
		if !e.fallback {
			Logf("opticflow: %v, tracking image center %v", err, center)
		}
		out[0] = FeaturePoint{Pos: center}
		n = 1
	}
	e.fallback = fallback

	e.ref = idx
	e.refFeatures = next
	e.numFeatures = n
}

func (e *Estimator) maybeSaveReport() {
	if e.cfg.DebugDir == "" {
		return
	}
	var sb strings.Builder
	for i, r := range e.report.Results {
		fmt.Fprintf(&sb, "feature %d score=%d %v\n", i, e.report.Features[i].Score, r)
	}
	fmt.Fprintf(&sb, "motion %v fallback=%t\n", e.report.Motion, e.report.Fallback)
	maybeSaveText(e.cfg.DebugDir, fmt.Sprintf("%04d-flow.txt", e.frame), sb.String())
}
