// Package pci enumerates PCI devices through Linux sysfs and performs
// hot resets so the host re-enumerates a device whose configuration
// space changed after reprogramming.
package pci

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Production sysfs locations.
const (
	DefaultDevicesPath = "/sys/bus/pci/devices"
	DefaultRescanPath  = "/sys/bus/pci/rescan"
)

// Sysfs provides access to the PCI bus through sysfs. The paths are
// fields so tests can point at a fake tree.
type Sysfs struct {
	DevicesPath string // directory of per-device entries
	RescanPath  string // bus-wide rescan control file
}

// New returns a Sysfs bound to the real bus.
func New() *Sysfs {
	return &Sysfs{
		DevicesPath: DefaultDevicesPath,
		RescanPath:  DefaultRescanPath,
	}
}

// ID is a vendor:device identifier pair.
type ID struct {
	Vendor uint16
	Device uint16
}

// ParseID parses a "vendor:device" hex pair, e.g. "10ee:903f".
func ParseID(s string) (ID, error) {
	vendor, device, ok := strings.Cut(s, ":")
	if !ok {
		return ID{}, fmt.Errorf("malformed PCI device id %q (want vendor:device)", s)
	}
	v, err := strconv.ParseUint(vendor, 16, 16)
	if err != nil {
		return ID{}, fmt.Errorf("malformed PCI vendor id %q", vendor)
	}
	d, err := strconv.ParseUint(device, 16, 16)
	if err != nil {
		return ID{}, fmt.Errorf("malformed PCI device id %q", device)
	}
	return ID{Vendor: uint16(v), Device: uint16(d)}, nil
}

func (id ID) String() string {
	return fmt.Sprintf("%04x:%04x", id.Vendor, id.Device)
}

// NotFoundError reports that no attached device matched the identifier.
type NotFoundError struct {
	ID ID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("no PCI device %s found", e.ID)
}

// ResetError reports a failed write to a sysfs control file.
type ResetError struct {
	Addr string // bus address, e.g. 0000:65:00.0
	Path string // control file that failed
	Err  error
}

func (e ResetError) Error() string {
	return fmt.Sprintf("hot reset of %s failed: writing %s: %v", e.Addr, e.Path, e.Err)
}

func (e ResetError) Unwrap() error { return e.Err }

// Find returns the bus addresses of every attached device whose
// vendor:device pair matches id, by reading the per-device vendor and
// device attribute files.
func (s *Sysfs) Find(id ID) ([]string, error) {
	entries, err := os.ReadDir(s.DevicesPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.DevicesPath, err)
	}

	var addrs []string
	for _, entry := range entries {
		devPath := filepath.Join(s.DevicesPath, entry.Name())

		vendor, err := readHex16(devPath, "vendor")
		if err != nil {
			continue
		}
		device, err := readHex16(devPath, "device")
		if err != nil {
			continue
		}

		if vendor == id.Vendor && device == id.Device {
			addrs = append(addrs, entry.Name())
		}
	}
	return addrs, nil
}

// readHex16 reads a hex value from a sysfs attribute file. Attribute
// contents look like "0x10ee\n".
func readHex16(devPath, name string) (uint16, error) {
	data, err := os.ReadFile(filepath.Join(devPath, name))
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseUint(strings.TrimSpace(string(data)), 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(val), nil
}
