package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	partBinaryType = "application/octet-stream"
	partTextType   = "text/plain; charset=UTF-8"
)

// Params maps parameter names to values. Values may be string, []byte, File,
// or anything with a sensible fmt/JSON representation.
type Params map[string]any

// File references a local file to upload as a multipart binary part.
type File struct {
	Path string
}

// FileRef is shorthand for File{Path: path}.
func FileRef(path string) File { return File{Path: path} }

// Name is the base name sent as the part's filename.
func (f File) Name() string { return filepath.Base(f.Path) }

// MarshalText lets a File appear in JSON bodies as its path.
func (f File) MarshalText() ([]byte, error) { return []byte(f.Path), nil }

// parseTarget validates rawURL as an absolute http(s) URL.
func parseTarget(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse url: missing host")
	}
	return u, nil
}

// withQuery merges params into the URL query. A param replaces an existing
// query key of the same name; keys are emitted in sorted order.
func withQuery(rawURL string, params Params) (string, error) {
	u, err := parseTarget(rawURL)
	if err != nil {
		return "", err
	}
	if len(params) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for _, k := range sortedKeys(params) {
		q.Set(k, textValue(params[k]))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case File:
		return t.Path
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// encodeBody attaches params to req using the encoding for kind. The returned
// cleanup closes any files opened for multipart parts and must be called after
// the request has executed.
func encodeBody(req *resty.Request, kind ContentType, params Params, log Logger) (func(), error) {
	noop := func() {}
	if kind == ContentMultipart {
		return encodeMultipart(req, params, log)
	}
	if params == nil {
		return noop, nil
	}

	switch kind {
	case ContentForm:
		form := make(url.Values, len(params))
		for k, v := range params {
			s, ok := v.(string)
			if !ok {
				return noop, fmt.Errorf("form param %q: unsupported value type %T", k, v)
			}
			form.Set(k, s)
		}
		// A string body keeps the caller's Content-Type as sent by applyHeaders.
		req.SetBody(form.Encode())
		return noop, nil

	default:
		data, err := json.Marshal(map[string]any(params))
		if err != nil {
			return noop, fmt.Errorf("marshal json body: %w", err)
		}
		req.SetBody(data)
		return noop, nil
	}
}

func encodeMultipart(req *resty.Request, params Params, log Logger) (func(), error) {
	var files []*os.File
	cleanup := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	written := 0
	for _, k := range sortedKeys(params) {
		switch v := params[k].(type) {
		case File:
			f, err := os.Open(v.Path)
			if err != nil {
				cleanup()
				return func() {}, fmt.Errorf("multipart param %q: open file: %w", k, err)
			}
			files = append(files, f)
			req.SetMultipartField(k, v.Name(), partBinaryType, f)
			written++
		case []byte:
			req.SetMultipartField(k, k, partBinaryType, bytes.NewReader(v))
			written++
		case string:
			req.SetMultipartField(k, "", partTextType, strings.NewReader(v))
			written++
		default:
			log.WarnObj("multipart param skipped", "multipart_param", map[string]any{
				"name": k,
				"type": fmt.Sprintf("%T", v),
			})
		}
	}
	if written == 0 {
		setEmptyMultipart(req)
	}
	return cleanup, nil
}

// setEmptyMultipart sends a well-formed multipart body with no parts. resty only
// builds multipart bodies when at least one field is set.
func setEmptyMultipart(req *resty.Request) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.Close()
	req.Header.Set(HeaderContentType, w.FormDataContentType())
	req.SetBody(buf.Bytes())
}
