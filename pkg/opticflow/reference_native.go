//go:build !purego && !js

package opticflow

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ReferenceFlow tracks the given features from ref into cur with OpenCV's
// pyramidal Lucas-Kanade. With no features it picks its own with
// GoodFeaturesToTrack.
func ReferenceFlow(ref, cur *Image, features []FeaturePoint) ([]ReferenceResult, error) {
	prev, err := gocv.NewMatFromBytes(ref.Height, ref.Width, gocv.MatTypeCV8UC1, ref.Pix[:ref.Width*ref.Height])
	if err != nil {
		return nil, fmt.Errorf("reference frame mat: %w", err)
	}
	defer prev.Close()
	next, err := gocv.NewMatFromBytes(cur.Height, cur.Width, gocv.MatTypeCV8UC1, cur.Pix[:cur.Width*cur.Height])
	if err != nil {
		return nil, fmt.Errorf("current frame mat: %w", err)
	}
	defer next.Close()

	var points gocv.Mat
	if len(features) == 0 {
		points = gocv.NewMat()
		gocv.GoodFeaturesToTrack(prev, &points, 16, 0.05, 7)
	} else {
		points = gocv.NewMatWithSize(len(features), 2, gocv.MatTypeCV32F)
		for i, f := range features {
			points.SetFloatAt(i, 0, float32(f.Pos.X.Float()))
			points.SetFloatAt(i, 1, float32(f.Pos.Y.Float()))
		}
	}
	defer points.Close()
	if points.Rows() == 0 {
		return nil, fmt.Errorf("reference: %w", ErrNoFeature)
	}

	nextPoints := gocv.NewMat()
	defer nextPoints.Close()
	status := gocv.NewMat()
	defer status.Close()
	errMat := gocv.NewMat()
	defer errMat.Close()

	gocv.CalcOpticalFlowPyrLK(prev, next, points, nextPoints, &status, &errMat)

	out := make([]ReferenceResult, points.Rows())
	for i := range out {
		out[i].Input = Point2d{X: float64(points.GetFloatAt(i, 0)), Y: float64(points.GetFloatAt(i, 1))}
		if status.GetUCharAt(i, 0) != 1 {
			continue
		}
		out[i].Output = Point2d{X: float64(nextPoints.GetFloatAt(i, 0)), Y: float64(nextPoints.GetFloatAt(i, 1))}
		out[i].Valid = true
	}
	return out, nil
}
