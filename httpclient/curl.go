package httpclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/isdmx/reqbox/sandbox"
)

const curlSeparator = " \\\n    "

// CurlCommand renders spec as a shell-ready curl invocation
func CurlCommand(spec sandbox.RequestSpec) (string, error) {
	spec = spec.Normalized()

	parts := []string{"curl -X " + shellWord(strings.ToUpper(spec.Method))}

	for _, name := range sortedHeaderNames(spec.Headers) {
		parts = append(parts, "-H "+shellQuote(name+": "+spec.Headers[name]))
	}

	if spec.Body != nil {
		var data string
		switch b := spec.Body.(type) {
		case string:
			data = b
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				return "", fmt.Errorf("encode request body: %w", err)
			}
			data = string(raw)
		}
		parts = append(parts, "-d "+shellQuote(data))
	}

	parts = append(parts, shellQuote(spec.URL))

	return strings.Join(parts, curlSeparator), nil
}

// shellQuote wraps s in single quotes for POSIX shells
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// shellWord returns s unchanged when it holds only letters, digits, '-',
// '_' and '.', and quoted otherwise
func shellWord(s string) string {
	if s == "" {
		return shellQuote(s)
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return shellQuote(s)
		}
	}
	return s
}
