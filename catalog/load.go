package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDir reads one device record per *.json, *.yaml or *.yml file in dir,
// validates the set and returns it as a Store. Files are read in name order.
func LoadDir(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	devices := make([]Device, 0, len(names))
	for _, name := range names {
		d, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}

	var errs []error
	for _, d := range devices {
		if err := ValidateDevice(d); err != nil {
			errs = append(errs, fmt.Errorf("device %q: %w", d.Codename, err))
		}
		warnUnparsableDates(d)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	store, err := New(devices)
	if err != nil {
		return nil, err
	}
	slog.Info("catalog loaded", "dir", dir, "devices", store.Len())
	return store, nil
}

// LoadFile decodes a single device record, choosing the decoder by extension.
func LoadFile(path string) (Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Device{}, fmt.Errorf("read %s: %w", path, err)
	}
	var d Device
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &d)
	default:
		err = json.Unmarshal(data, &d)
	}
	if err != nil {
		return Device{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return d, nil
}

func warnUnparsableDates(d Device) {
	for _, sys := range d.Systems {
		for _, v := range sys.Versions {
			for _, r := range v.Releases {
				if _, ok := ParseDate(r.Date); !ok {
					slog.Warn("unparsable release date",
						"codename", d.Codename, "system", sys.Name,
						"version", v.Version, "date", r.Date)
				}
			}
		}
	}
}
