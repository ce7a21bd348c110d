package srv

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/webframp/otalog/plaintext"
)

// NotFoundMessage is the body of a plain-text response with no changelog.
const NotFoundMessage = "未找到更新日志"

const plainContentType = "text/plain; charset=utf-8"

// PlainText intercepts requests the classifier matches under rule and
// answers them with the rendered changelog. Everything else reaches next
// untouched.
func (s *Server) PlainText(rule Rule, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rule == RuleClientIdentity {
			if _, ok := MatchDevicePath(r.URL.EscapedPath(), DevicePrefix, s.Classifier.Target); ok {
				w.Header().Add("Vary", "User-Agent")
			}
		}
		codename, ok := s.Classifier.ClassifyRequest(r, rule)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		AddClientAttributes(r, rule, codename)

		_, span := StartRenderSpan(r.Context(), codename, attribute.String("plaintext.rule", rule.String()))
		doc, found := s.Renderer.Document(s.Catalog, codename, s.Classifier.Target)
		span.SetAttributes(attribute.Bool("plaintext.found", found), attribute.Int("plaintext.bytes", len(doc)))
		span.End()

		w.Header().Set("Content-Type", plainContentType)
		if !found {
			s.Metrics.observePlainText(rule, http.StatusNotFound)
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, NotFoundMessage)
			return
		}

		etag := `W/"` + plaintext.Digest(doc) + `"`
		w.Header().Set("ETag", etag)
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			s.Metrics.observePlainText(rule, http.StatusNotModified)
			w.WriteHeader(http.StatusNotModified)
			return
		}

		s.Metrics.observePlainText(rule, http.StatusOK)
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, doc); err != nil {
			slog.Warn("write plain text", "codename", codename, "error", err)
		}
	})
}

// etagMatches applies the weak comparison If-None-Match calls for. The tag is
// weak because Gzip may re-encode the body after it is set.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
