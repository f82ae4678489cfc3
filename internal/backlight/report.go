// Package backlight formats feature readings for status bars and persists the
// last reading per output so other tools can pick it up without DDC traffic.
package backlight

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Report is the JSON document emitted on stdout and persisted per output.
type Report struct {
	Value      uint16 `json:"value"`
	Percentage uint   `json:"percentage"`
	Max        uint16 `json:"max"`
}

func NewReport(value, max uint16) Report {
	return Report{Value: value, Percentage: percentage(value, max), Max: max}
}

// percentage rounds value/max to the nearest whole percent. A display that
// reports max=0 yields 0.
func percentage(value, max uint16) uint {
	if max == 0 {
		return 0
	}
	return uint(math.Round(float64(value) / float64(max) * 100))
}

func (r Report) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// SnapshotPath returns <dir>/<output>.json. Output names must be a single
// path element.
func SnapshotPath(dir, output string) (string, error) {
	if output == "" || output == "." || output == ".." || strings.ContainsRune(output, filepath.Separator) {
		return "", fmt.Errorf("backlight: invalid output name %q", output)
	}
	return filepath.Join(dir, output+".json"), nil
}

// WriteSnapshot overwrites the snapshot for output with r, creating dir if
// needed. The file is replaced atomically.
func WriteSnapshot(dir, output string, r Report) (string, error) {
	path, err := SnapshotPath(dir, output)
	if err != nil {
		return "", err
	}
	b, err := r.JSON()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("backlight: state dir: %w", err)
	}

	// Temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("backlight: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("backlight: write %s: %w", tmpPath, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("backlight: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("backlight: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("backlight: %w", err)
	}
	return path, nil
}
