package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-http-facade/internal/domain"
	"gopkg.in/yaml.v3"
)

// Entry is a single request declared in a plan file.
type Entry struct {
	ID             string            `json:"id" yaml:"id"`
	Method         string            `json:"method" yaml:"method"`
	URL            string            `json:"url" yaml:"url"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	Params         map[string]any    `json:"params" yaml:"params"`
	Files          map[string]string `json:"files" yaml:"files"`
	ContentType    string            `json:"content_type" yaml:"content_type"`
	Once           bool              `json:"once" yaml:"once"`
	ExtractMeta    bool              `json:"extract_meta" yaml:"extract_meta"`
	RequestDelayMs int               `json:"request_delay_ms" yaml:"request_delay_ms"`
}

type file struct {
	Requests []Entry `json:"requests" yaml:"requests"`
}

// Plan is an ordered, validated set of entries.
type Plan struct {
	entries []Entry
	idx     map[string]Entry
}

// Load reads a plan from a YAML or JSON file.
func Load(path string) (*Plan, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("plan file path is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	return Parse(raw, filepath.Ext(path))
}

// Parse decodes plan content. ext selects the decoder (".yaml", ".yml", ".json");
// an empty ext tries each in turn.
func Parse(data []byte, ext string) (*Plan, error) {
	pf, err := decode(data, ext)
	if err != nil {
		return nil, err
	}
	if len(pf.Requests) == 0 {
		return nil, errors.New("plan file contains no requests entries")
	}

	p := &Plan{
		entries: make([]Entry, len(pf.Requests)),
		idx:     make(map[string]Entry, len(pf.Requests)),
	}
	for i := range pf.Requests {
		e := sanitizeEntry(pf.Requests[i])
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("requests[%d]: %w", i, err)
		}
		if _, exists := p.idx[e.ID]; exists {
			return nil, fmt.Errorf("duplicate request id %q", e.ID)
		}
		p.entries[i] = e
		p.idx[e.ID] = e
	}
	return p, nil
}

type unmarshalFn func([]byte, any) error

func decode(data []byte, ext string) (file, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var pf file
		if err := d.fn(data, &pf); err == nil {
			return pf, nil
		}
	}
	return file{}, errors.New("plan file format not recognized (expected YAML or JSON)")
}

func sanitizeEntry(e Entry) Entry {
	e.ID = strings.TrimSpace(e.ID)
	e.URL = strings.TrimSpace(e.URL)
	e.Method = strings.ToUpper(strings.TrimSpace(e.Method))
	if e.Method == "" {
		e.Method = http.MethodGet
	}
	e.ContentType = strings.TrimSpace(e.ContentType)
	if e.RequestDelayMs < 0 {
		e.RequestDelayMs = 0
	}
	return e
}

func validateEntry(e Entry) error {
	if e.ID == "" {
		return errors.New("id is required")
	}
	if e.Method != http.MethodGet && e.Method != http.MethodPost {
		return fmt.Errorf("method %q not supported for request %q (GET or POST)", e.Method, e.ID)
	}
	if e.URL == "" {
		return fmt.Errorf("url is required for request %q", e.ID)
	}
	if len(e.Files) > 0 && e.Method != http.MethodPost {
		return fmt.Errorf("files require POST for request %q", e.ID)
	}
	for name, path := range e.Files {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("file %q has empty path for request %q", name, e.ID)
		}
	}
	return nil
}

// RequestDelay is the pause after this entry before the next one runs.
func (e Entry) RequestDelay() time.Duration {
	return time.Duration(e.RequestDelayMs) * time.Millisecond
}

// Spec converts the entry into the runner's request model. content_type is
// applied as a Content-Type header unless the headers already carry one.
func (e Entry) Spec() domain.RequestSpec {
	headers := make(map[string]string, len(e.Headers)+1)
	hasCT := false
	for k, v := range e.Headers {
		headers[k] = v
		if strings.EqualFold(strings.TrimSpace(k), "Content-Type") {
			hasCT = true
		}
	}
	if e.ContentType != "" && !hasCT {
		headers["Content-Type"] = e.ContentType
	}

	var params map[string]any
	if e.Params != nil {
		params = make(map[string]any, len(e.Params))
		for k, v := range e.Params {
			params[k] = v
		}
	}

	return domain.RequestSpec{
		ID:          e.ID,
		Method:      e.Method,
		URL:         e.URL,
		Headers:     headers,
		Params:      params,
		Files:       e.Files,
		Once:        e.Once,
		ExtractMeta: e.ExtractMeta,
		Delay:       e.RequestDelay(),
	}
}

// Entries returns a copy of the plan entries in file order.
func (p *Plan) Entries() []Entry {
	if p == nil {
		return nil
	}
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Specs returns the request specs in file order.
func (p *Plan) Specs() []domain.RequestSpec {
	if p == nil {
		return nil
	}
	out := make([]domain.RequestSpec, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.Spec())
	}
	return out
}

// ByID returns the entry with the given id.
func (p *Plan) ByID(id string) (Entry, bool) {
	if p == nil {
		return Entry{}, false
	}
	e, ok := p.idx[strings.TrimSpace(id)]
	return e, ok
}
