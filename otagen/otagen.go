// Package otagen builds the ota.json update manifest for a packaged ROM
// build.
package otagen

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// DefaultBaseURL is the download root builds are uploaded under.
const DefaultBaseURL = "https://pan.neokoni.ink/d/OneDrive-Public"

// BuildDateProp holds the build timestamp in build.prop.
const BuildDateProp = "ro.system.build.date.utc"

var datePart = regexp.MustCompile(`^\d{8}$`)

// Manifest is the document OTA clients poll.
type Manifest struct {
	Response []Entry `json:"response"`
}

// Entry describes one downloadable build.
type Entry struct {
	Datetime int64  `json:"datetime"`
	Filename string `json:"filename"`
	ID       string `json:"id"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
	Version  string `json:"version"`
}

// FileName is the parsed form of Name-Ver-Device-YYYYMMDD-Tags.zip.
type FileName struct {
	Full    string // base name including extension
	Name    string // e.g. AviumUI
	Ver     string // e.g. 16
	Device  string // codename
	Date    string // YYYYMMDD
	Version string // everything before the date, e.g. AviumUI-16-lemonades
}

// ROM returns the lower-cased name without a trailing "ui".
func (f FileName) ROM() string {
	return strings.TrimSuffix(strings.ToLower(f.Name), "ui")
}

// DashedDate returns Date as YYYY-MM-DD.
func (f FileName) DashedDate() string {
	return f.Date[:4] + "-" + f.Date[4:6] + "-" + f.Date[6:]
}

// ParseFileName splits a package file name. The first 8-digit segment is
// the build date and the segment before it the device codename.
func ParseFileName(name string) (FileName, error) {
	base := filepath.Base(name)
	parts := strings.Split(strings.TrimSuffix(base, filepath.Ext(base)), "-")
	dateIdx := -1
	for i, p := range parts {
		if datePart.MatchString(p) {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return FileName{}, fmt.Errorf("%s: no YYYYMMDD date segment", base)
	}
	if dateIdx < 2 {
		return FileName{}, fmt.Errorf("%s: expected Name-Ver-Device before the date", base)
	}
	return FileName{
		Full:    base,
		Name:    parts[0],
		Ver:     parts[1],
		Device:  parts[dateIdx-1],
		Date:    parts[dateIdx],
		Version: strings.Join(parts[:dateIdx], "-"),
	}, nil
}

// ParseProps reads key=value lines, skipping blanks and # comments.
func ParseProps(r io.Reader) (map[string]string, error) {
	props := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		props[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read props: %w", err)
	}
	return props, nil
}

// BuildDate returns the UTC build timestamp from a build.prop file.
func BuildDate(propPath string) (int64, error) {
	f, err := os.Open(propPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	props, err := ParseProps(f)
	if err != nil {
		return 0, err
	}
	v, ok := props[BuildDateProp]
	if !ok || v == "" {
		return 0, fmt.Errorf("%s: %s not set", propPath, BuildDateProp)
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid %s %q", propPath, BuildDateProp, v)
	}
	return ts, nil
}

// HashFile returns the hex SHA-1 and size of the file at path.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha1.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// SplitArgs identifies which of two paths is the package and which the
// build.prop, in either order.
func SplitArgs(a, b string) (zipPath, propPath string, err error) {
	for _, p := range []string{a, b} {
		switch {
		case strings.HasSuffix(p, ".zip"):
			zipPath = p
		case strings.HasSuffix(p, ".prop") || strings.Contains(p, "build.prop"):
			propPath = p
		}
	}
	if zipPath == "" || propPath == "" {
		return "", "", errors.New("need one .zip package and one build.prop file")
	}
	return zipPath, propPath, nil
}

// Build is a manifest together with where it belongs.
type Build struct {
	File     FileName
	Manifest Manifest
	// Path is relative to the output root: public/{Name}/{rom}-{ver}/{device}/ota.json
	Path string
}

// New assembles the manifest for a package and its build.prop.
func New(zipPath, propPath, baseURL string) (Build, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	ts, err := BuildDate(propPath)
	if err != nil {
		return Build{}, err
	}
	id, size, err := HashFile(zipPath)
	if err != nil {
		return Build{}, err
	}
	fn, err := ParseFileName(zipPath)
	if err != nil {
		return Build{}, err
	}
	url := strings.TrimSuffix(baseURL, "/") + "/" + fn.Device + "/" + fn.ROM() + fn.Ver + "/" + fn.DashedDate() + "/" + fn.Full
	return Build{
		File: fn,
		Manifest: Manifest{Response: []Entry{{
			Datetime: ts,
			Filename: fn.Full,
			ID:       id,
			Size:     size,
			URL:      url,
			Version:  fn.Version,
		}}},
		Path: filepath.Join("public", fn.Name, fn.ROM()+"-"+fn.Ver, fn.Device, "ota.json"),
	}, nil
}

// JSON renders the manifest with two-space indentation.
func (b Build) JSON() ([]byte, error) {
	return json.MarshalIndent(b.Manifest, "", "  ")
}

// Write saves the manifest below root and returns the written path.
func (b Build) Write(root string) (string, error) {
	data, err := b.JSON()
	if err != nil {
		return "", err
	}
	dst := filepath.Join(root, b.Path)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}
