//go:build purego || js

package opticflow

// ReferenceFlow is not available without OpenCV.
func ReferenceFlow(ref, cur *Image, features []FeaturePoint) ([]ReferenceResult, error) {
	return nil, ErrReferenceUnavailable
}
