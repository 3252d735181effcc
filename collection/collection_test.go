package collection

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdmx/reqbox/sandbox"
)

const yamlCollection = `
name: Users API
requests:
  - name: list users
    method: GET
    url: https://api.example.com/users
  - name: create user
    method: POST
    url: https://api.example.com/users
    headers:
      Content-Type: application/json
    body:
      name: alice
      roles: [admin, dev]
      limits:
        1: one
    preRequestScript: |
      request.headers["X-Request-Id"] = "abc";
`

const jsonCollection = `{
  "name": "Imported",
  "requests": [
    {
      "name": "ping",
      "method": "get",
      "url": "https://example.com/ping",
      "headers": {"Accept": "application/json"},
      "body": {"n": 1},
      "preRequestScript": "environment.t = Date.now()"
    }
  ]
}`

func TestParse(t *testing.T) {
	t.Run("YAML", func(t *testing.T) {
		c, err := Parse([]byte(yamlCollection))
		require.NoError(t, err)

		assert.Equal(t, "Users API", c.Name)
		require.Len(t, c.Requests, 2)

		create := c.Requests[1]
		assert.Equal(t, "POST", create.Method)
		assert.Equal(t, map[string]string{"Content-Type": "application/json"}, create.Headers)
		assert.Contains(t, create.PreRequestScript, "X-Request-Id")

		// bodies must be JSON-encodable
		raw, err := json.Marshal(create.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"alice","roles":["admin","dev"],"limits":{"1":"one"}}`, string(raw))
	})

	t.Run("JSON", func(t *testing.T) {
		c, err := Parse([]byte(jsonCollection))
		require.NoError(t, err)

		assert.Equal(t, "Imported", c.Name)
		require.Len(t, c.Requests, 1)
		assert.Equal(t, "environment.t = Date.now()", c.Requests[0].PreRequestScript)
		assert.Equal(t, map[string]any{"n": 1}, c.Requests[0].Body)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := Parse([]byte("name: [unterminated"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse collection")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		collection Collection
		wantErr    string
	}{
		{
			name:       "MissingName",
			collection: Collection{},
			wantErr:    "collection name is required",
		},
		{
			name: "MissingRequestName",
			collection: Collection{Name: "c", Requests: []Request{
				{URL: "https://example.com"},
			}},
			wantErr: "request #1: name is required",
		},
		{
			name: "DuplicateRequestName",
			collection: Collection{Name: "c", Requests: []Request{
				{Name: "a", URL: "https://example.com"},
				{Name: "a", URL: "https://example.com/2"},
			}},
			wantErr: `request "a": duplicate name`,
		},
		{
			name: "MissingURL",
			collection: Collection{Name: "c", Requests: []Request{
				{Name: "a"},
			}},
			wantErr: `request "a": url is required`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.collection.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}

	t.Run("EmptyRequestListIsValid", func(t *testing.T) {
		assert.NoError(t, (&Collection{Name: "empty"}).Validate())
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAMLFile", func(t *testing.T) {
		path := filepath.Join(dir, "users.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yamlCollection), 0o600))

		c, err := Load(path)
		require.NoError(t, err)
		assert.Len(t, c.Requests, 2)
	})

	t.Run("JSONFile", func(t *testing.T) {
		path := filepath.Join(dir, "imported.json")
		require.NoError(t, os.WriteFile(path, []byte(jsonCollection), 0o600))

		c, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Imported", c.Name)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read collection file")
	})

	t.Run("InvalidContent", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("requests: []\n"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "collection name is required")
	})
}

func TestFindAndSubmission(t *testing.T) {
	c, err := Parse([]byte(jsonCollection))
	require.NoError(t, err)

	r, err := c.Find("ping")
	require.NoError(t, err)

	sub := r.Submission()
	assert.Equal(t, sandbox.RequestSpec{
		Method:  "get",
		URL:     "https://example.com/ping",
		Headers: map[string]string{"Accept": "application/json"},
		Body:    map[string]any{"n": 1},
	}, sub.Request)
	assert.Equal(t, "environment.t = Date.now()", sub.PreRequestScript)

	_, err = c.Find("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestNotFound))

	t.Run("DefaultsMethodAndHeaders", func(t *testing.T) {
		spec := Request{Name: "bare", URL: "https://example.com"}.Spec()
		assert.Equal(t, sandbox.DefaultMethod, spec.Method)
		assert.NotNil(t, spec.Headers)
	})
}
