package session

import (
	"context"
	"regexp"
	"strings"
	"sync"
)

// Credential is the value forwarded to the backend as the Cookie header.
// It is built once per inbound request and passed explicitly to every call.
type Credential string

// FromSID builds a credential from a backend session identifier.
func FromSID(sid string) Credential {
	return Credential("sid=" + sid)
}

// Empty reports whether there is nothing to forward.
func (c Credential) Empty() bool {
	return strings.TrimSpace(string(c)) == ""
}

// String returns the Cookie header value.
func (c Credential) String() string {
	return string(c)
}

var sidPattern = regexp.MustCompile(`(?:^|[;,\s])sid=([^;,\s]+)`)

// ExtractSID finds the backend session identifier in Set-Cookie values.
// Anonymous "Guest" sessions and unparseable headers yield "".
func ExtractSID(setCookies []string) string {
	for _, header := range setCookies {
		match := sidPattern.FindStringSubmatch(header)
		if len(match) < 2 {
			continue
		}
		sid := strings.Trim(match[1], `"`)
		if sid == "" || strings.EqualFold(sid, "Guest") {
			continue
		}
		return sid
	}
	return ""
}

type sinkKey struct{}

// Sink receives session identifiers issued by the backend while a request
// is being served.
type Sink struct {
	mu  sync.Mutex
	sid string
}

// Record stores sid; the last write wins.
func (s *Sink) Record(sid string) {
	if s == nil || sid == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sid = sid
}

// SID returns the most recently recorded identifier.
func (s *Sink) SID() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid
}

// WithSink attaches sink to ctx so transport code can report rotated sessions.
func WithSink(ctx context.Context, sink *Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, sink)
}

// Notify records any session identifier found in setCookies on the sink
// carried by ctx. It returns the identifier found, if any.
func Notify(ctx context.Context, setCookies []string) string {
	sid := ExtractSID(setCookies)
	if sid == "" {
		return ""
	}
	if sink, ok := ctx.Value(sinkKey{}).(*Sink); ok {
		sink.Record(sid)
	}
	return sid
}
