package collection

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/isdmx/reqbox/runner"
	"github.com/isdmx/reqbox/sandbox"
)

// ErrRequestNotFound is returned by Find for an unknown request name
var ErrRequestNotFound = errors.New("request not found in collection")

// Collection is a named list of saved requests
type Collection struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Requests    []Request `yaml:"requests" json:"requests"`
}

// Request is one saved request of a collection
type Request struct {
	Name             string            `yaml:"name" json:"name"`
	Method           string            `yaml:"method" json:"method"`
	URL              string            `yaml:"url" json:"url"`
	Headers          map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body             any               `yaml:"body,omitempty" json:"body,omitempty"`
	PreRequestScript string            `yaml:"preRequestScript,omitempty" json:"preRequestScript,omitempty"`
}

// Load reads and validates a collection file. JSON files are accepted as
// they are valid YAML.
func Load(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection file %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a collection document
func Parse(data []byte) (*Collection, error) {
	var c Collection
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse collection: %w", err)
	}

	for i := range c.Requests {
		c.Requests[i].Body = normalize(c.Requests[i].Body)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the collection for missing names, duplicate request
// names and missing URLs
func (c *Collection) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("collection name is required")
	}

	seen := make(map[string]bool, len(c.Requests))
	for i, r := range c.Requests {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("request #%d: name is required", i+1)
		}
		if seen[r.Name] {
			return fmt.Errorf("request %q: duplicate name", r.Name)
		}
		seen[r.Name] = true

		if strings.TrimSpace(r.URL) == "" {
			return fmt.Errorf("request %q: url is required", r.Name)
		}
	}

	return nil
}

// Find returns the request with the given name
func (c *Collection) Find(name string) (Request, error) {
	for _, r := range c.Requests {
		if r.Name == name {
			return r, nil
		}
	}
	return Request{}, fmt.Errorf("%w: %q", ErrRequestNotFound, name)
}

// Spec returns the request specification of r
func (r Request) Spec() sandbox.RequestSpec {
	return sandbox.RequestSpec{
		Method:  r.Method,
		URL:     r.URL,
		Headers: r.Headers,
		Body:    r.Body,
	}.Normalized()
}

// Submission returns r ready to be run
func (r Request) Submission() runner.Submission {
	return runner.Submission{
		Request:          r.Spec(),
		PreRequestScript: r.PreRequestScript,
	}
}

// normalize turns YAML mappings with non-string keys into string-keyed
// maps so bodies can be encoded as JSON
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	default:
		return v
	}
}
