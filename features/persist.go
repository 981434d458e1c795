package features

import (
	"bytes"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/freightml/pkg/errors"
)

const layoutHeader = "# Feature positions for the amount model, found by freightprobe search.\n" +
	"# Source and destination are one-hot; distance and weight hold raw values.\n"

// SaveLayout writes l to path as YAML, replacing any existing file.
func SaveLayout(path string, l SparseLayout) error {
	if err := l.Validate(); err != nil {
		return err
	}

	body, err := yaml.Marshal(l)
	if err != nil {
		return errors.Wrap(err, "marshal layout")
	}

	var buf bytes.Buffer
	buf.WriteString(layoutHeader)
	buf.Write(body)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// LoadLayout reads a layout written by SaveLayout. A missing num_features
// means AmountWidth.
func LoadLayout(path string) (SparseLayout, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return SparseLayout{}, errors.Wrapf(err, "read %s", path)
	}

	l := SparseLayout{Size: AmountWidth}
	if err := yaml.Unmarshal(data, &l); err != nil {
		return SparseLayout{}, errors.Wrapf(err, "parse %s", path)
	}
	if err := l.Validate(); err != nil {
		return SparseLayout{}, err
	}
	return l, nil
}
