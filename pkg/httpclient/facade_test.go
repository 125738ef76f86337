package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type logEntry struct {
	level string
	msg   string
	obj   interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *recordingLogger) add(level, msg string, obj interface{}) {
	r.mu.Lock()
	r.entries = append(r.entries, logEntry{level: level, msg: msg, obj: obj})
	r.mu.Unlock()
}

func (r *recordingLogger) InfoObj(msg, _ string, obj interface{})  { r.add("info", msg, obj) }
func (r *recordingLogger) DebugObj(msg, _ string, obj interface{}) { r.add("debug", msg, obj) }
func (r *recordingLogger) WarnObj(msg, _ string, obj interface{})  { r.add("warn", msg, obj) }
func (r *recordingLogger) ErrorObj(msg, _ string, obj interface{}) { r.add("error", msg, obj) }

func (r *recordingLogger) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func newTestFacade(t *testing.T, opts ...Option) *Facade {
	t.Helper()
	pool := NewPool(PoolConfig{MaxTotal: 4, MaxPerRoute: 2})
	t.Cleanup(pool.Close)
	return New(pool, opts...)
}

func TestGetMergesParamsIntoQuery(t *testing.T) {
	var rawQuery, accept, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		rawQuery = r.URL.RawQuery
		accept = r.Header.Get(HeaderAccept)
		contentType = r.Header.Get(HeaderContentType)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	log := &recordingLogger{}
	f := newTestFacade(t, WithLogger(log))

	resp, err := f.Get(context.Background(), srv.URL, nil, Params{"a": "1", "b": "2"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rawQuery != "a=1&b=2" {
		t.Fatalf("query = %q, want a=1&b=2", rawQuery)
	}
	if accept != MIMEJSON || contentType != MIMEJSON {
		t.Fatalf("default headers missing: accept=%q content-type=%q", accept, contentType)
	}
	if resp.Text() != `{"ok":true}` || resp.StatusCode() != http.StatusOK {
		t.Fatalf("unexpected response %d %q", resp.StatusCode(), resp.Text())
	}
	if log.count("info") != 1 {
		t.Fatalf("expected status to be logged once, got %d", log.count("info"))
	}
}

func TestGetParamReplacesExistingQueryKey(t *testing.T) {
	var got map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
	}))
	defer srv.Close()

	f := newTestFacade(t)
	if _, err := f.GetWithParams(context.Background(), srv.URL+"/search?page=1&q=old", Params{"q": "new", "n": 5}); err != nil {
		t.Fatalf("GetWithParams: %v", err)
	}
	if len(got["q"]) != 1 || got["q"][0] != "new" {
		t.Fatalf("q = %v, want [new]", got["q"])
	}
	if got["page"][0] != "1" || got["n"][0] != "5" {
		t.Fatalf("unexpected query %v", got)
	}
}

func TestGetWithHeadersKeepsCallerAccept(t *testing.T) {
	var accept []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Values(HeaderAccept)
	}))
	defer srv.Close()

	f := newTestFacade(t)
	if _, err := f.GetWithHeaders(context.Background(), srv.URL, map[string]string{"accept": "text/html"}); err != nil {
		t.Fatalf("GetWithHeaders: %v", err)
	}
	if len(accept) != 1 || accept[0] != "text/html" {
		t.Fatalf("Accept = %v, want [text/html]", accept)
	}
}

func TestPostDefaultsToJSONBody(t *testing.T) {
	var body, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		contentType = r.Header.Get(HeaderContentType)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	f := newTestFacade(t)
	resp, err := f.PostWithParams(context.Background(), srv.URL, Params{"x": "y"})
	if err != nil {
		t.Fatalf("PostWithParams: %v", err)
	}
	if body != `{"x":"y"}` {
		t.Fatalf("body = %q, want {\"x\":\"y\"}", body)
	}
	if contentType != MIMEJSON {
		t.Fatalf("content type = %q", contentType)
	}
	if resp.StatusCode() != http.StatusCreated || resp.Text() != `{"id":7}` {
		t.Fatalf("unexpected response %d %q", resp.StatusCode(), resp.Text())
	}
}

func TestPostJSONEncodesNestedValues(t *testing.T) {
	var decoded map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&decoded)
	}))
	defer srv.Close()

	f := newTestFacade(t)
	_, err := f.Post(context.Background(), srv.URL, Params{
		"n":    3,
		"tags": []string{"a", "b"},
		"doc":  FileRef("/tmp/doc.txt"),
	}, map[string]string{"Content-Type": "application/json; charset=UTF-8"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if decoded["n"] != float64(3) || decoded["doc"] != "/tmp/doc.txt" {
		t.Fatalf("unexpected decoded body %v", decoded)
	}
}

func TestPostFormURLEncoded(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		form = r.PostForm
	}))
	defer srv.Close()

	f := newTestFacade(t)
	_, err := f.Post(context.Background(), srv.URL, Params{"user": "m2on", "q": "a b&c"},
		map[string]string{"Content-Type": MIMEForm})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if form["user"][0] != "m2on" || form["q"][0] != "a b&c" {
		t.Fatalf("unexpected form %v", form)
	}
}

func TestPostFormRejectsNonText(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	f := newTestFacade(t)
	resp, err := f.Post(context.Background(), srv.URL, Params{"n": 1},
		map[string]string{"content-type": MIMEForm})
	if !IsEncoding(err) {
		t.Fatalf("expected encoding error, got %v", err)
	}
	if resp != nil || called {
		t.Fatalf("request should not have been sent")
	}
}

func TestPostMultipartParts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(path, []byte("file-content"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	type part struct{ name, filename, content string }
	var parts []part
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mr, err := r.MultipartReader()
		if err != nil {
			t.Errorf("MultipartReader: %v", err)
			return
		}
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				t.Errorf("NextPart: %v", err)
				return
			}
			raw, _ := io.ReadAll(p)
			parts = append(parts, part{p.FormName(), p.FileName(), string(raw)})
		}
	}))
	defer srv.Close()

	f := newTestFacade(t)
	_, err := f.Post(context.Background(), srv.URL, Params{
		"upload": FileRef(path),
		"blob":   []byte{0x01, 0x02},
		"title":  "quarterly",
		"skip":   42,
	}, map[string]string{"Content-Type": MIMEMultipart})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	byName := map[string]part{}
	for _, p := range parts {
		byName[p.name] = p
	}
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %+v", parts)
	}
	if p := byName["upload"]; p.filename != "report.txt" || p.content != "file-content" {
		t.Fatalf("file part = %+v", p)
	}
	if p := byName["blob"]; p.filename != "blob" || p.content != "\x01\x02" {
		t.Fatalf("bytes part = %+v", p)
	}
	if p := byName["title"]; p.filename != "" || p.content != "quarterly" {
		t.Fatalf("text part = %+v", p)
	}
}

func TestPostMultipartMissingFile(t *testing.T) {
	f := newTestFacade(t)
	_, err := f.Post(context.Background(), "http://127.0.0.1:1/upload",
		Params{"upload": FileRef(filepath.Join(t.TempDir(), "missing.bin"))},
		map[string]string{"Content-Type": MIMEMultipart})
	if !IsEncoding(err) {
		t.Fatalf("expected encoding error, got %v", err)
	}
}

func TestUnreachableHostReturnsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := srv.URL
	srv.Close()

	log := &recordingLogger{}
	f := newTestFacade(t, WithLogger(log))

	resp, err := f.GetURL(context.Background(), target)
	if !IsTransport(err) || resp != nil {
		t.Fatalf("GetURL: expected transport error, got resp=%v err=%v", resp, err)
	}
	if BodyOrNil(resp, err) != nil {
		t.Fatalf("BodyOrNil should be nil on failure")
	}

	resp, err = f.PostURL(context.Background(), target)
	if !IsTransport(err) || resp != nil {
		t.Fatalf("PostURL: expected transport error, got resp=%v err=%v", resp, err)
	}
	if log.count("warn") != 2 {
		t.Fatalf("expected 2 warnings, got %d", log.count("warn"))
	}
}

func TestNon2xxReturnsStatusErrorWithResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFacade(t)
	resp, err := f.PostWithHeaders(context.Background(), srv.URL, map[string]string{"X-Req": "1"})
	if !IsStatus(err) {
		t.Fatalf("expected status error, got %v", err)
	}
	if resp == nil || resp.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %v", resp)
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("error message = %q", err.Error())
	}
	if BodyOrNil(resp, err) != nil {
		t.Fatalf("BodyOrNil should be nil for non-2xx")
	}
}

func TestMalformedURLIsEncodingError(t *testing.T) {
	f := newTestFacade(t)
	for _, u := range []string{"not a url", "ftp://example.com", "http://", "://x"} {
		if _, err := f.GetURL(context.Background(), u); !IsEncoding(err) {
			t.Fatalf("GetURL(%q): expected encoding error, got %v", u, err)
		}
		if _, err := f.PostURL(context.Background(), u); !IsEncoding(err) {
			t.Fatalf("PostURL(%q): expected encoding error, got %v", u, err)
		}
	}
}

func TestResponseTextReplacesInvalidUTF8(t *testing.T) {
	r := &Response{status: 200, body: []byte{'o', 'k', 0xff}}
	if got := r.Text(); got != "ok�" {
		t.Fatalf("Text = %q", got)
	}
	if s := BodyOrNil(r, nil); s == nil || *s != "ok�" {
		t.Fatalf("BodyOrNil = %v", s)
	}
}

func TestPostSendsCallerContentTypeUnchanged(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		wantBody    string
	}{
		{"json", "application/json; charset=UTF-8", `{"x":"y"}`},
		{"form", "application/x-www-form-urlencoded; charset=UTF-8", "x=y"},
		{"multipart", MIMEMultipart, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotType, gotBody string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotType = r.Header.Get(HeaderContentType)
				raw, _ := io.ReadAll(r.Body)
				gotBody = string(raw)
			}))
			defer srv.Close()

			f := newTestFacade(t)
			if _, err := f.Post(context.Background(), srv.URL, Params{"x": "y"},
				map[string]string{"content-type": tc.contentType}); err != nil {
				t.Fatalf("Post: %v", err)
			}

			if tc.name != "multipart" {
				if gotType != tc.contentType || gotBody != tc.wantBody {
					t.Fatalf("server got type=%q body=%q, want type=%q body=%q", gotType, gotBody, tc.contentType, tc.wantBody)
				}
				return
			}
			mediaType, params, err := mime.ParseMediaType(gotType)
			if err != nil || mediaType != MIMEMultipart || params["boundary"] == "" {
				t.Fatalf("server got multipart type %q (%v)", gotType, err)
			}
			if !strings.Contains(gotBody, `name="x"`) {
				t.Fatalf("multipart body missing part: %q", gotBody)
			}
		})
	}
}

func TestPostMultipartWithoutEncodableParts(t *testing.T) {
	for _, params := range []Params{nil, {"n": nil}} {
		var (
			gotType  string
			parseErr error
			fields   int
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotType = r.Header.Get(HeaderContentType)
			parseErr = r.ParseMultipartForm(1 << 20)
			if parseErr == nil {
				fields = len(r.MultipartForm.Value) + len(r.MultipartForm.File)
			}
		}))

		rec := &recordingLogger{}
		f := newTestFacade(t, WithLogger(rec))
		_, err := f.Post(context.Background(), srv.URL, params, map[string]string{"Content-Type": MIMEMultipart})
		srv.Close()
		if err != nil {
			t.Fatalf("Post(%v): %v", params, err)
		}
		if _, mp, _ := mime.ParseMediaType(gotType); mp["boundary"] == "" {
			t.Fatalf("Post(%v): content type without boundary %q", params, gotType)
		}
		if parseErr != nil || fields != 0 {
			t.Fatalf("Post(%v): parse=%v fields=%d", params, parseErr, fields)
		}
		if want := len(params); rec.count("warn") != want {
			t.Fatalf("Post(%v): %d warnings, want %d", params, rec.count("warn"), want)
		}
	}
}
