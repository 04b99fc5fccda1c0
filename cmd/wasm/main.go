//go:build js && wasm

package main

import (
	"syscall/js"

	"opticflow/pkg/opticflow"
)

var (
	lastReport *opticflow.Report
	lastFrame  *opticflow.Image
)

func main() {
	opticflow.SetLogger(nil)
	js.Global().Set("estimateFlow", js.FuncOf(estimateFlow))
	js.Global().Set("renderOverlay", js.FuncOf(renderOverlay))
	select {} // block forever
}

// estimateFlow(frame1, frame2, width, height, options) tracks frame2 against
// frame1. options may set layout ("gray", "rgb565", "rgb"), bigEndian for
// rgb565 dumps, policy ("single_axis", "compass") and arithmetic ("fixed",
// "float").
func estimateFlow(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return errorResult("usage: estimateFlow(frame1, frame2, width, height, options)")
	}

	cfg := opticflow.DefaultConfig()
	cfg.Width = args[2].Int()
	cfg.Height = args[3].Int()
	format := opticflow.RawFrameFormat{Layout: opticflow.LayoutRGB}

	if len(args) >= 5 && args[4].Type() == js.TypeObject {
		o := args[4]
		if v := o.Get("layout"); v.Type() == js.TypeString {
			l, err := opticflow.ParsePixelLayout(v.String())
			if err != nil {
				return errorResult(err.Error())
			}
			format.Layout = l
		}
		if v := o.Get("bigEndian"); v.Type() == js.TypeBoolean {
			format.BigEndian = v.Bool()
		}
		if v := o.Get("policy"); v.Type() == js.TypeString {
			if err := cfg.Policy.UnmarshalText([]byte(v.String())); err != nil {
				return errorResult(err.Error())
			}
		}
		if v := o.Get("arithmetic"); v.Type() == js.TypeString {
			cfg.Arithmetic = v.String()
		}
		if v := o.Get("levels"); v.Type() == js.TypeNumber {
			cfg.Levels = v.Int()
		}
	}

	format.Width, format.Height = cfg.Width, cfg.Height
	frame1, err := opticflow.ReadRawFrameFromBytes(copyBytes(args[0]), format)
	if err != nil {
		return errorResult("frame1: " + err.Error())
	}
	frame2, err := opticflow.ReadRawFrameFromBytes(copyBytes(args[1]), format)
	if err != nil {
		return errorResult("frame2: " + err.Error())
	}

	est, err := opticflow.NewEstimator(cfg)
	if err != nil {
		return errorResult("config error: " + err.Error())
	}
	rep, err := est.Estimate(frame1, frame2, format.Layout)
	if err != nil {
		return errorResult("estimate error: " + err.Error())
	}

	prev, _ := est.LastPair()
	lastFrame = opticflow.NewImage(cfg.Width, cfg.Height)
	if err := lastFrame.CopyFrom(prev.Level(0)); err != nil {
		return errorResult(err.Error())
	}
	lastReport = cloneReport(rep)

	m := rep.Motion
	jsResults := make([]interface{}, len(rep.Results))
	for i, r := range rep.Results {
		entry := map[string]interface{}{
			"x":     r.Input.X.Float(),
			"y":     r.Input.Y.Float(),
			"score": rep.Features[i].Score,
			"valid": r.Valid,
		}
		if r.Valid {
			d := r.Displacement()
			entry["dx"] = d.X.Float()
			entry["dy"] = d.Y.Float()
		} else if r.Err != nil {
			entry["error"] = r.Err.Error()
		}
		jsResults[i] = entry
	}

	return js.ValueOf(map[string]interface{}{
		"width":     cfg.Width,
		"height":    cfg.Height,
		"direction": m.Direction.String(),
		"dx":        m.Sum.X.Float(),
		"dy":        m.Sum.Y.Float(),
		"meanDx":    m.Mean.X.Float(),
		"meanDy":    m.Mean.Y.Float(),
		"magnitude": m.Magnitude,
		"angle":     m.AngleDeg,
		"valid":     m.Valid,
		"fallback":  rep.Fallback,
		"features":  jsResults,
	})
}

func renderOverlay(this js.Value, args []js.Value) interface{} {
	if lastReport == nil {
		return js.Null()
	}

	jpegBytes, err := opticflow.RenderFlowOverlayBytes(lastFrame, lastReport)
	if err != nil {
		return js.Null()
	}

	uint8Array := js.Global().Get("Uint8Array").New(len(jpegBytes))
	js.CopyBytesToJS(uint8Array, jpegBytes)
	return uint8Array
}

// cloneReport detaches a report from estimator storage.
func cloneReport(rep *opticflow.Report) *opticflow.Report {
	c := *rep
	c.Features = append([]opticflow.FeaturePoint(nil), rep.Features...)
	c.Results = append([]opticflow.FlowResult(nil), rep.Results...)
	return &c
}

func copyBytes(v js.Value) []byte {
	buf := make([]byte, v.Get("length").Int())
	js.CopyBytesToGo(buf, v)
	return buf
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": msg,
	})
}
