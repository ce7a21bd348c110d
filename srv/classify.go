package srv

import (
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/webframp/otalog/plaintext"
)

const (
	// DevicePrefix is the root of the rich device views.
	DevicePrefix = "/device"
	// DefaultPlainPrefix is the root of the always-plain routes.
	DefaultPlainPrefix = "/plain/device"
	// DefaultClientMarker appears in the User-Agent of clients that can only
	// display plain text.
	DefaultClientMarker = "Build/BP"
)

// Rule identifies which trigger selected the plain-text rendering path.
type Rule int

const (
	// RuleClientIdentity matches the rich device path when the User-Agent
	// carries the client marker.
	RuleClientIdentity Rule = iota
	// RulePlainPrefix matches the dedicated prefix with no identity check.
	RulePlainPrefix
)

func (r Rule) String() string {
	switch r {
	case RuleClientIdentity:
		return "client_identity"
	case RulePlainPrefix:
		return "plain_prefix"
	}
	return "unknown"
}

// PathMatch holds the segments of a matched device path.
type PathMatch struct {
	Codename string
	System   string
	Version  string
}

// MatchDevicePath matches path against {prefix}/{codename}/{system}/{version}
// with an optional trailing slash. The system and version segments must
// equal the target exactly. path is expected in escaped form; the codename
// is unescaped once.
func MatchDevicePath(path, prefix string, target plaintext.Target) (PathMatch, bool) {
	rest, ok := strings.CutPrefix(path, prefix+"/")
	if !ok {
		return PathMatch{}, false
	}
	rest = strings.TrimSuffix(rest, "/")
	segs := strings.Split(rest, "/")
	if len(segs) != 3 || segs[0] == "" {
		return PathMatch{}, false
	}
	if segs[1] != target.System || segs[2] != target.Version {
		return PathMatch{}, false
	}
	codename, err := url.PathUnescape(segs[0])
	if err != nil || codename == "" {
		return PathMatch{}, false
	}
	return PathMatch{Codename: codename, System: segs[1], Version: segs[2]}, true
}

// Classifier decides whether a request asks for a plain-text changelog.
type Classifier struct {
	PlainPrefix  string
	ClientMarker string
	Target       plaintext.Target
}

// NewClassifier returns a Classifier for the configured prefix and marker.
func NewClassifier(cfg Config) Classifier {
	return Classifier{
		PlainPrefix:  cfg.PlainPrefix,
		ClientMarker: cfg.ClientMarker,
		Target:       plaintext.AviumTarget,
	}
}

// Classify returns the codename of the device whose plain-text changelog the
// request targets under rule, or false when the rule does not apply.
func (c Classifier) Classify(path, clientIdentity string, rule Rule) (string, bool) {
	var prefix string
	switch rule {
	case RuleClientIdentity:
		if c.ClientMarker == "" || !strings.Contains(clientIdentity, c.ClientMarker) {
			return "", false
		}
		prefix = DevicePrefix
	case RulePlainPrefix:
		prefix = c.PlainPrefix
	default:
		return "", false
	}
	m, ok := MatchDevicePath(path, prefix, c.Target)
	if !ok {
		return "", false
	}
	return m.Codename, true
}

// ClassifyRequest classifies r using its escaped path and User-Agent.
func (c Classifier) ClassifyRequest(r *http.Request, rule Rule) (string, bool) {
	return c.Classify(r.URL.EscapedPath(), r.UserAgent(), rule)
}

// AddClientAttributes adds the classification result as span attributes.
func AddClientAttributes(r *http.Request, rule Rule, codename string) {
	span := trace.SpanFromContext(r.Context())
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("plaintext.rule", rule.String()),
		attribute.String("plaintext.codename", codename),
		attribute.String("client.user_agent", r.UserAgent()),
	)
}
