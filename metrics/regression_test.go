package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/freightml/pkg/errors"
)

func vec(v ...float64) *mat.VecDense {
	return mat.NewVecDense(len(v), v)
}

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{"perfect prediction", vec(1, 2, 3, 4, 5), vec(1, 2, 3, 4, 5), 0, false},
		{"simple case", vec(1, 2, 3, 4), vec(1.5, 2.5, 2.5, 3.5), 0.25, false},
		{"larger errors", vec(10, 20, 30), vec(12, 18, 33), 17.0 / 3.0, false},
		{"dimension mismatch", vec(1, 2, 3), vec(1, 2), 0, true},
		{"empty vectors", &mat.VecDense{}, &mat.VecDense{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-10)
		})
	}
}

func TestRMSE(t *testing.T) {
	got, err := RMSE(vec(10, 20, 30), vec(12, 18, 33))
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(17.0/3.0), got, 1e-10)
}

func TestMAE(t *testing.T) {
	got, err := MAE(vec(1, 2, 3), vec(2, 2, 1))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-10)

	_, err = MAE(vec(1, 2), vec(1))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestMAPE(t *testing.T) {
	got, err := MAPE(vec(100, 200, 0), vec(110, 180, 5))
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got, 1e-10)

	_, err = MAPE(vec(0, 0), vec(1, 1))
	assert.Error(t, err)
}

func TestR2Score(t *testing.T) {
	got, err := R2Score(vec(1, 2, 3, 4), vec(1, 2, 3, 4))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-10)

	got, err = R2Score(vec(1, 2, 3), vec(2, 2, 2))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-10)

	_, err = R2Score(vec(5, 5), vec(5, 4))
	assert.Error(t, err)
}

func TestAgree(t *testing.T) {
	a, err := Agree([]float64{0.1, 0.2}, []float64{0.11, 0.18})
	require.NoError(t, err)
	assert.Equal(t, 2, a.N)
	assert.InDelta(t, 0.015, a.MAE, 1e-12)
	assert.InDelta(t, math.Sqrt((0.0001+0.0004)/2), a.RMSE, 1e-12)
	assert.InDelta(t, 10.0, a.MAPE, 1e-9)

	_, err = Agree(nil, nil)
	assert.ErrorIs(t, err, errors.ErrEmptyData)

	_, err = Agree([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}
