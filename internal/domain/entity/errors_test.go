package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOODError(t *testing.T) {
	var err error = fmt.Errorf("analyze: %w", &OODError{Score: 12345.6, Threshold: 10000})

	var ood *OODError
	require.True(t, errors.As(err, &ood))
	require.Equal(t, 12345.6, ood.Score)
	require.Contains(t, ood.Error(), "12346")
}

func TestECGTraceDuration(t *testing.T) {
	tr := ECGTrace{Samples: make([]float64, 500), SamplingRate: 250}
	require.Equal(t, 2.0, tr.Duration())
	require.Zero(t, ECGTrace{Samples: []float64{1}}.Duration())
}
