package httpclient

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	HeaderAccept      = "Accept"
	HeaderContentType = "Content-Type"

	MIMEJSON      = "application/json"
	MIMEForm      = "application/x-www-form-urlencoded"
	MIMEMultipart = "multipart/form-data"
)

// HeaderMatch controls how the merge step decides whether the caller already
// supplied Accept or Content-Type.
type HeaderMatch int

const (
	// MatchFold treats any casing of the key as present.
	MatchFold HeaderMatch = iota
	// MatchLiteral only recognizes the canonical spelling or the all-lowercase one,
	// so "ACCEPT" is not seen and a default Accept is added next to it.
	MatchLiteral
)

func (m HeaderMatch) String() string {
	switch m {
	case MatchLiteral:
		return "literal"
	default:
		return "fold"
	}
}

// ParseHeaderMatch maps "fold" or "literal" (empty means fold).
func ParseHeaderMatch(s string) (HeaderMatch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fold":
		return MatchFold, nil
	case "literal":
		return MatchLiteral, nil
	default:
		return MatchFold, fmt.Errorf("unknown header match mode %q", s)
	}
}

func (m HeaderMatch) has(headers map[string]string, key string) bool {
	if m == MatchLiteral {
		if _, ok := headers[key]; ok {
			return true
		}
		_, ok := headers[strings.ToLower(key)]
		return ok
	}
	for k := range headers {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return true
		}
	}
	return false
}

// MergeHeaders returns a copy of headers with Accept and Content-Type defaulted
// to application/json when the caller did not set them. The input is not modified.
func MergeHeaders(headers map[string]string, match HeaderMatch) map[string]string {
	out := make(map[string]string, len(headers)+2)
	for k, v := range headers {
		out[k] = v
	}
	for _, key := range []string{HeaderAccept, HeaderContentType} {
		if !match.has(out, key) {
			out[key] = MIMEJSON
		}
	}
	return out
}

// ContentType is the body encoding selected for a POST.
type ContentType int

const (
	ContentJSON ContentType = iota
	ContentForm
	ContentMultipart
)

func (c ContentType) String() string {
	switch c {
	case ContentForm:
		return MIMEForm
	case ContentMultipart:
		return MIMEMultipart
	default:
		return MIMEJSON
	}
}

// ResolveContentType inspects every Content-Type entry (key compared without case)
// and returns the first recognized encoding. Unrecognized or missing values fall
// back to JSON.
func ResolveContentType(headers map[string]string) ContentType {
	for _, k := range sortedKeys(headers) {
		if !strings.EqualFold(strings.TrimSpace(k), HeaderContentType) {
			continue
		}
		v := strings.ToLower(headers[k])
		switch {
		case strings.Contains(v, MIMEJSON):
			return ContentJSON
		case strings.Contains(v, MIMEForm):
			return ContentForm
		case strings.Contains(v, MIMEMultipart):
			return ContentMultipart
		}
	}
	return ContentJSON
}

// applyHeaders adds every entry to h. Keys differing only by case are all sent.
func applyHeaders(h http.Header, headers map[string]string) {
	for _, k := range sortedKeys(headers) {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		h.Add(key, headers[k])
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
