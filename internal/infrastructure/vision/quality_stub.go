//go:build !gocv
// +build !gocv

package vision

import "context"

// Check без OpenCV не выполняется.
func (g *QualityGate) Check(ctx context.Context, raw []byte) ([]string, error) {
	_ = ctx
	_ = raw
	return nil, ErrQualityUnavailable
}
