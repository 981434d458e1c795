package features

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/freightml/pkg/errors"
)

func TestDefaultTestCases(t *testing.T) {
	cases := DefaultTestCases()
	require.Len(t, cases, 4)
	for _, tc := range cases {
		assert.Equal(t, "KYN", tc.Source)
		assert.Equal(t, "DHI", tc.Destination)
		assert.Equal(t, 13.0, tc.Demand)
	}
	assert.Equal(t, ProbeDistance, cases[3].Distance)
	assert.Equal(t, ProbeWeight, cases[3].Weight)
	assert.Equal(t, "KYN->DHI 1000 km 100 t", cases[0].String())
}

func TestDenseLayout(t *testing.T) {
	tc := TestCase{Distance: 382, Weight: 1374, Demand: 13}
	assert.Equal(t, []float64{382, 1374, 13}, DenseLayout{}.Vector(tc))
	assert.Equal(t, 3, DenseLayout{}.Width())
}

func TestSparseLayoutVector(t *testing.T) {
	l := NewSparseLayout(0, 50, 770, 771)
	require.NoError(t, l.Validate())

	v := l.Vector(TestCase{Distance: ProbeDistance, Weight: ProbeWeight})
	require.Len(t, v, AmountWidth)
	assert.Equal(t, 1.0, v[0])
	assert.Equal(t, 1.0, v[50])
	assert.Equal(t, ProbeDistance, v[770])
	assert.Equal(t, ProbeWeight, v[771])

	nonZero := 0
	for _, x := range v {
		if x != 0 {
			nonZero++
		}
	}
	assert.Equal(t, 4, nonZero)

	// vectors are never shared between calls
	v[0] = 99
	assert.Equal(t, 1.0, l.Vector(TestCase{})[0])
}

func TestSparseLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout SparseLayout
		param  string
	}{
		{"negative", NewSparseLayout(-1, 1, 2, 3), "source_position"},
		{"past end", NewSparseLayout(0, 1, 2, AmountWidth), "weight_position"},
		{"source equals destination", NewSparseLayout(1, 1, 2, 3), "destination_position"},
		{"distance equals weight", NewSparseLayout(0, 1, 5, 5), "weight_position"},
		{"zero width", SparseLayout{Source: 0, Destination: 1, Distance: 2, Weight: 3}, "num_features"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			require.Error(t, err)
			var valErr *errors.ValidationError
			require.True(t, errors.As(err, &valErr))
			assert.Equal(t, tt.param, valErr.ParamName)
		})
	}
}

func TestSparseLayoutOverlapLaterWins(t *testing.T) {
	l := NewSparseLayout(0, 1, 1, 0)
	require.NoError(t, l.Validate())

	v := l.Vector(TestCase{Distance: 500, Weight: 40})
	assert.Equal(t, 40.0, v[0], "weight overwrites the source flag")
	assert.Equal(t, 500.0, v[1], "distance overwrites the destination flag")

	X, err := Matrix(l, []TestCase{{Distance: 500, Weight: 40}})
	require.NoError(t, err)
	assert.Equal(t, 500.0, X.At(0, 1))
}

func TestAmountFormats(t *testing.T) {
	formats := AmountFormats()
	require.Len(t, formats, 3)
	assert.Equal(t, []string{"dense", "sparse-leading", "sparse-important"},
		[]string{formats[0].Name, formats[1].Name, formats[2].Name})
	assert.Equal(t, NewSparseLayout(0, 1, 96, 191), formats[2].Layout)
}

func TestMatrix(t *testing.T) {
	X, err := Matrix(DenseLayout{}, DefaultTestCases())
	require.NoError(t, err)
	rows, cols := X.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, 5000.0, X.At(1, 0))
	assert.Equal(t, 500.0, X.At(1, 1))

	X, err = Matrix(NewSparseLayout(0, 1, 2, 3), DefaultTestCases()[:1])
	require.NoError(t, err)
	_, cols = X.Dims()
	assert.Equal(t, AmountWidth, cols)
	assert.Equal(t, 1000.0, X.At(0, 2))

	_, err = Matrix(DenseLayout{}, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = Matrix(NewSparseLayout(0, 0, 2, 3), DefaultTestCases())
	assert.Error(t, err)
}

func TestSaveLoadLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "model_config.yaml")
	want := NewSparseLayout(1, 50, 96, 191)

	require.NoError(t, SaveLayout(path, want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "# Feature positions"))
	assert.Contains(t, text, "source_position: 1\n")
	assert.Contains(t, text, "destination_position: 50\n")
	assert.Contains(t, text, "distance_position: 96\n")
	assert.Contains(t, text, "weight_position: 191\n")
	assert.Contains(t, text, "num_features: 772\n")

	got, err := LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadLayoutDefaultsWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	body := "source_position: 0\ndestination_position: 1\ndistance_position: 2\nweight_position: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	got, err := LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, NewSparseLayout(0, 1, 2, 3), got)
}

func TestLoadLayoutErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadLayout(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("source_position: [1, 2\n"), 0o644))
	_, err = LoadLayout(bad)
	assert.Error(t, err)

	collide := filepath.Join(dir, "collide.yaml")
	require.NoError(t, os.WriteFile(collide,
		[]byte("source_position: 0\ndestination_position: 0\ndistance_position: 2\nweight_position: 3\n"), 0o644))
	_, err = LoadLayout(collide)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestSaveLayoutRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.yaml")
	assert.Error(t, SaveLayout(path, NewSparseLayout(0, 1, 2, 2)))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
