// Package catalog holds the device tree that every other package reads from.
// A Store is built once at startup and never mutated afterwards, so any
// number of goroutines may query it without locking.
package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// Release is one dated update within a version.
type Release struct {
	Date    string   `json:"date" yaml:"date"`
	Version string   `json:"version,omitempty" yaml:"version,omitempty"`
	Changes []string `json:"changes" yaml:"changes"`
}

// Version is a release train within a system.
type Version struct {
	Version  string    `json:"version" yaml:"version"`
	Label    string    `json:"label" yaml:"label"`
	Releases []Release `json:"releases,omitempty" yaml:"releases,omitempty"`
}

// System is an operating-system variant offered for a device.
type System struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Versions    []Version `json:"versions,omitempty" yaml:"versions,omitempty"`
}

// Device is a hardware target identified by its codename.
type Device struct {
	Codename string   `json:"codename" yaml:"codename"`
	Name     string   `json:"name" yaml:"name"`
	Systems  []System `json:"systems,omitempty" yaml:"systems,omitempty"`
}

// ErrDuplicateCodename is returned when two device records share a codename.
var ErrDuplicateCodename = errors.New("duplicate device codename")

// Store is an immutable, codename-indexed set of devices.
type Store struct {
	devices []Device
	index   map[string]int
}

// New builds a Store from already-parsed device records. The records are
// copied; later changes to the argument do not affect the Store.
func New(devices []Device) (*Store, error) {
	s := &Store{
		devices: make([]Device, len(devices)),
		index:   make(map[string]int, len(devices)),
	}
	copy(s.devices, devices)
	sort.SliceStable(s.devices, func(i, j int) bool {
		return s.devices[i].Codename < s.devices[j].Codename
	})
	for i, d := range s.devices {
		if _, dup := s.index[d.Codename]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCodename, d.Codename)
		}
		s.index[d.Codename] = i
	}
	return s, nil
}

// Len returns the number of devices.
func (s *Store) Len() int { return len(s.devices) }

// Devices returns every device ordered by codename.
func (s *Store) Devices() []Device {
	out := make([]Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// Device looks up a device by codename.
func (s *Store) Device(codename string) (Device, bool) {
	i, ok := s.index[codename]
	if !ok {
		return Device{}, false
	}
	return s.devices[i], true
}

// System looks up a system of a device by name.
func (s *Store) System(codename, systemName string) (System, bool) {
	d, ok := s.Device(codename)
	if !ok {
		return System{}, false
	}
	for _, sys := range d.Systems {
		if sys.Name == systemName {
			return sys, true
		}
	}
	return System{}, false
}

// Version looks up a release train by device, system and version id.
func (s *Store) Version(codename, systemName, versionID string) (Version, bool) {
	sys, ok := s.System(codename, systemName)
	if !ok {
		return Version{}, false
	}
	for _, v := range sys.Versions {
		if v.Version == versionID {
			return v, true
		}
	}
	return Version{}, false
}
