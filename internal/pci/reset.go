package pci

import (
	"os"
	"path/filepath"
)

// HotReset forces the OS to forget and re-discover every attached device
// matching the identifier string (a vendor:device hex pair).
//
// Per device it writes the function-level reset control file when the
// kernel exposes one; otherwise it removes the device node and triggers
// a rescan on the parent bridge (or the whole bus when the parent has no
// rescan file). The call is fire-and-forget: it does not wait for the
// device to reappear. Any control-file write failure is fatal — a hot
// reset is not safe to retry blindly.
func (s *Sysfs) HotReset(device string) error {
	id, err := ParseID(device)
	if err != nil {
		return err
	}

	addrs, err := s.Find(id)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		return NotFoundError{ID: id}
	}

	for _, addr := range addrs {
		if err := s.resetDevice(addr); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sysfs) resetDevice(addr string) error {
	devPath := filepath.Join(s.DevicesPath, addr)

	resetPath := filepath.Join(devPath, "reset")
	if _, err := os.Stat(resetPath); err == nil {
		if err := writeControl(resetPath); err != nil {
			return ResetError{Addr: addr, Path: resetPath, Err: err}
		}
		return nil
	}

	// Resolve the parent's rescan file before removing the node; the
	// symlink disappears with the device.
	rescanPath := s.parentRescanPath(devPath)

	removePath := filepath.Join(devPath, "remove")
	if err := writeControl(removePath); err != nil {
		return ResetError{Addr: addr, Path: removePath, Err: err}
	}

	if err := writeControl(rescanPath); err != nil {
		return ResetError{Addr: addr, Path: rescanPath, Err: err}
	}
	return nil
}

// parentRescanPath locates the rescan control file of the bridge above
// the device, falling back to the bus-wide rescan file. Device entries
// under /sys/bus/pci/devices are symlinks into the /sys/devices tree,
// where the parent directory is the upstream bridge.
func (s *Sysfs) parentRescanPath(devPath string) string {
	resolved, err := filepath.EvalSymlinks(devPath)
	if err != nil {
		return s.RescanPath
	}
	parent := filepath.Join(filepath.Dir(resolved), "rescan")
	if _, err := os.Stat(parent); err == nil {
		return parent
	}
	return s.RescanPath
}

// writeControl pokes a sysfs control file. The kernel only cares that
// the written value is "1".
func writeControl(path string) error {
	return os.WriteFile(path, []byte("1\n"), 0o200)
}
