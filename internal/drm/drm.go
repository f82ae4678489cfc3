// Package drm maps display connector names (DP-1, HDMI-A-1, ...) to the I2C
// adapter carrying their DDC lines, using the DRM class tree in sysfs.
//
// Layout relied upon:
//
//	/sys/class/drm/card0-DP-1/i2c-5          adapter registered by the connector
//	/sys/class/drm/card0-HDMI-A-1/ddc -> ../../../i2c-3
package drm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// I2CPrefix names i2c-dev adapters; outputs starting with it are
	// taken to be device refs already.
	I2CPrefix = "i2c-"

	cardPrefix = "card"
	ddcLink    = "ddc"
)

var (
	ErrOutputNotFound = errors.New("drm: output not found")
	ErrDeviceNotFound = errors.New("drm: i2c device not found")
)

// DeviceRef names an i2c-dev adapter, e.g. "i2c-5".
type DeviceRef string

// Path returns the character device for ref under devDir (usually /dev).
func (r DeviceRef) Path(devDir string) string {
	return filepath.Join(devDir, string(r))
}

// Output is a DRM connector as listed under the class tree.
type Output struct {
	Name      string    // DP-1
	Connector string    // card0-DP-1
	Device    DeviceRef // empty when the connector exposes no adapter
	Status    string    // connected, disconnected, unknown
}

type Resolver struct {
	sysfsRoot string
}

func NewResolver(sysfsRoot string) *Resolver {
	if sysfsRoot == "" {
		sysfsRoot = "/sys"
	}
	return &Resolver{sysfsRoot: sysfsRoot}
}

func (r *Resolver) classDir() string {
	return filepath.Join(r.sysfsRoot, "class", "drm")
}

// Resolve returns the adapter for output. The sysfs tree is read once; a
// miss is reported as ErrOutputNotFound or ErrDeviceNotFound.
func (r *Resolver) Resolve(output string) (DeviceRef, error) {
	if strings.HasPrefix(output, I2CPrefix) {
		return DeviceRef(output), nil
	}
	if output == "" {
		return "", fmt.Errorf("%w: empty output name", ErrOutputNotFound)
	}

	base := r.classDir()
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("drm: read %s: %w", base, err)
	}
	for _, e := range entries {
		if !connectorMatches(e.Name(), output) {
			continue
		}
		ref, err := connectorDevice(filepath.Join(base, e.Name()))
		if err != nil {
			return "", fmt.Errorf("%s: %w", output, err)
		}
		return ref, nil
	}
	return "", fmt.Errorf("%w: %s", ErrOutputNotFound, output)
}

// List enumerates every connector, with its adapter when one is exposed.
func (r *Resolver) List() ([]Output, error) {
	base := r.classDir()
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("drm: read %s: %w", base, err)
	}
	var outs []Output
	for _, e := range entries {
		name, ok := connectorOutput(e.Name())
		if !ok {
			continue
		}
		dir := filepath.Join(base, e.Name())
		o := Output{Name: name, Connector: e.Name(), Status: readStatus(dir)}
		if ref, err := connectorDevice(dir); err == nil {
			o.Device = ref
		}
		outs = append(outs, o)
	}
	return outs, nil
}

// connectorMatches reports whether entry is cardN-<output>. The hyphen
// before output is required, so DP-1 never matches card0-DP-10 or card0-eDP-1.
func connectorMatches(entry, output string) bool {
	suffix := "-" + output
	if len(entry) < len(cardPrefix)+len(suffix) {
		return false
	}
	return strings.HasPrefix(entry, cardPrefix) && strings.HasSuffix(entry, suffix)
}

// connectorOutput splits card0-DP-1 into DP-1. Bare cards (card0) and
// other class entries (renderD128, version) are not connectors.
func connectorOutput(entry string) (string, bool) {
	if !strings.HasPrefix(entry, cardPrefix) {
		return "", false
	}
	_, name, ok := strings.Cut(entry, "-")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// connectorDevice finds the adapter under a connector directory. An i2c-N
// child wins over the ddc symlink when both are present.
func connectorDevice(dir string) (DeviceRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("drm: read %s: %w", dir, err)
	}
	var viaLink DeviceRef
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, I2CPrefix) {
			return DeviceRef(name), nil
		}
		if name == ddcLink && viaLink == "" && e.Type()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(filepath.Join(dir, name))
			if err != nil {
				return "", fmt.Errorf("drm: readlink %s: %w", filepath.Join(dir, name), err)
			}
			if base := filepath.Base(target); base != "." && base != string(filepath.Separator) {
				viaLink = DeviceRef(base)
			}
		}
	}
	if viaLink != "" {
		return viaLink, nil
	}
	return "", ErrDeviceNotFound
}

func readStatus(dir string) string {
	b, err := os.ReadFile(filepath.Join(dir, "status"))
	if err != nil {
		return "unknown"
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "unknown"
	}
	return s
}
