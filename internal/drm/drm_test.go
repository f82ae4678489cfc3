package drm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sysfsFixture builds a fake /sys where class/drm entries are symlinks into
// a devices tree, the way the kernel lays them out.
type sysfsFixture struct {
	t    *testing.T
	root string
}

func newSysfs(t *testing.T) *sysfsFixture {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"class/drm", "devices/pci0000:00/drm/card0", "devices/pci0000:00/i2c"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	return &sysfsFixture{t: t, root: root}
}

// connector creates card0-<output> and returns its real directory.
func (f *sysfsFixture) connector(output, status string) string {
	f.t.Helper()
	name := "card0-" + output
	real := filepath.Join(f.root, "devices/pci0000:00/drm/card0", name)
	if err := os.MkdirAll(real, 0o755); err != nil {
		f.t.Fatalf("MkdirAll: %v", err)
	}
	if status != "" {
		if err := os.WriteFile(filepath.Join(real, "status"), []byte(status+"\n"), 0o644); err != nil {
			f.t.Fatalf("WriteFile status: %v", err)
		}
	}
	if err := os.Symlink(real, filepath.Join(f.root, "class/drm", name)); err != nil {
		f.t.Fatalf("Symlink: %v", err)
	}
	return real
}

func (f *sysfsFixture) i2cChild(connDir, ref string) {
	f.t.Helper()
	if err := os.MkdirAll(filepath.Join(connDir, ref), 0o755); err != nil {
		f.t.Fatalf("MkdirAll: %v", err)
	}
}

func (f *sysfsFixture) ddcLink(connDir, ref string) {
	f.t.Helper()
	adapter := filepath.Join(f.root, "devices/pci0000:00/i2c", ref)
	if err := os.MkdirAll(adapter, 0o755); err != nil {
		f.t.Fatalf("MkdirAll: %v", err)
	}
	rel, err := filepath.Rel(connDir, adapter)
	if err != nil {
		f.t.Fatalf("Rel: %v", err)
	}
	if err := os.Symlink(rel, filepath.Join(connDir, "ddc")); err != nil {
		f.t.Fatalf("Symlink ddc: %v", err)
	}
}

func (f *sysfsFixture) plainEntry(name string) {
	f.t.Helper()
	if err := os.MkdirAll(filepath.Join(f.root, "class/drm", name), 0o755); err != nil {
		f.t.Fatalf("MkdirAll: %v", err)
	}
}

func TestResolve_I2CChild(t *testing.T) {
	fx := newSysfs(t)
	fx.i2cChild(fx.connector("DP-1", "connected"), "i2c-5")

	ref, err := NewResolver(fx.root).Resolve("DP-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref != "i2c-5" {
		t.Fatalf("ref=%q want i2c-5", ref)
	}
}

func TestResolve_DDCSymlink(t *testing.T) {
	fx := newSysfs(t)
	fx.ddcLink(fx.connector("HDMI-A-1", "connected"), "i2c-3")

	ref, err := NewResolver(fx.root).Resolve("HDMI-A-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref != "i2c-3" {
		t.Fatalf("ref=%q want i2c-3", ref)
	}
}

func TestResolve_I2CChildPreferredOverDDC(t *testing.T) {
	fx := newSysfs(t)
	conn := fx.connector("DP-2", "connected")
	fx.ddcLink(conn, "i2c-3")
	fx.i2cChild(conn, "i2c-7")

	ref, err := NewResolver(fx.root).Resolve("DP-2")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref != "i2c-7" {
		t.Fatalf("ref=%q want i2c-7", ref)
	}
}

func TestResolve_HyphenBoundary(t *testing.T) {
	fx := newSysfs(t)
	fx.i2cChild(fx.connector("DP-10", "connected"), "i2c-10")
	fx.i2cChild(fx.connector("eDP-1", "connected"), "i2c-11")

	_, err := NewResolver(fx.root).Resolve("DP-1")
	if !errors.Is(err, ErrOutputNotFound) {
		t.Fatalf("err=%v want ErrOutputNotFound", err)
	}

	fx.i2cChild(fx.connector("DP-1", "connected"), "i2c-1")
	ref, err := NewResolver(fx.root).Resolve("DP-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref != "i2c-1" {
		t.Fatalf("ref=%q want i2c-1", ref)
	}
}

func TestResolve_I2CPrefixSkipsDiscovery(t *testing.T) {
	// The root does not even exist; no filesystem access may happen.
	r := NewResolver(filepath.Join(t.TempDir(), "missing"))
	ref, err := r.Resolve("i2c-4")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if ref != "i2c-4" {
		t.Fatalf("ref=%q want i2c-4", ref)
	}
}

func TestResolve_ConnectorWithoutAdapter(t *testing.T) {
	fx := newSysfs(t)
	conn := fx.connector("DP-3", "disconnected")
	// A plain directory called ddc is not a link and must be ignored.
	fx.i2cChild(conn, "ddc")

	_, err := NewResolver(fx.root).Resolve("DP-3")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("err=%v want ErrDeviceNotFound", err)
	}
}

func TestResolve_Errors(t *testing.T) {
	fx := newSysfs(t)
	r := NewResolver(fx.root)

	if _, err := r.Resolve(""); !errors.Is(err, ErrOutputNotFound) {
		t.Fatalf("empty output err=%v want ErrOutputNotFound", err)
	}
	if _, err := r.Resolve("DP-9"); !errors.Is(err, ErrOutputNotFound) {
		t.Fatalf("err=%v want ErrOutputNotFound", err)
	}

	missing := NewResolver(filepath.Join(t.TempDir(), "nosys"))
	_, err := missing.Resolve("DP-1")
	if err == nil || errors.Is(err, ErrOutputNotFound) {
		t.Fatalf("err=%v want filesystem error", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err=%v want wrapped ErrNotExist", err)
	}
}

func TestConnectorMatches(t *testing.T) {
	cases := []struct {
		entry, output string
		want          bool
	}{
		{"card0-DP-1", "DP-1", true},
		{"card1-HDMI-A-1", "HDMI-A-1", true},
		{"card0-DP-10", "DP-1", false},
		{"card0-eDP-1", "DP-1", false},
		{"card0", "DP-1", false},
		{"renderD128-DP-1", "DP-1", false},
		{"card-DP-1", "DP-1", true},
	}
	for _, tc := range cases {
		if got := connectorMatches(tc.entry, tc.output); got != tc.want {
			t.Fatalf("connectorMatches(%q, %q)=%v want %v", tc.entry, tc.output, got, tc.want)
		}
	}
}

func TestList(t *testing.T) {
	fx := newSysfs(t)
	fx.i2cChild(fx.connector("DP-1", "connected"), "i2c-5")
	fx.ddcLink(fx.connector("HDMI-A-1", "disconnected"), "i2c-3")
	fx.connector("Writeback-1", "")
	fx.plainEntry("card0")
	fx.plainEntry("renderD128")
	fx.plainEntry("version")

	got, err := NewResolver(fx.root).List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []Output{
		{Name: "DP-1", Connector: "card0-DP-1", Device: "i2c-5", Status: "connected"},
		{Name: "HDMI-A-1", Connector: "card0-HDMI-A-1", Device: "i2c-3", Status: "disconnected"},
		{Name: "Writeback-1", Connector: "card0-Writeback-1", Status: "unknown"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestDeviceRefPath(t *testing.T) {
	if got := DeviceRef("i2c-5").Path("/dev"); got != "/dev/i2c-5" {
		t.Fatalf("Path=%q want /dev/i2c-5", got)
	}
}
