package apiserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/isdmx/reqbox/httpclient"
	"github.com/isdmx/reqbox/runner"
	"github.com/isdmx/reqbox/sandbox"
)

// maxRequestBytes bounds the JSON body accepted by the API
const maxRequestBytes = 4 << 20

// scriptErrorTitle is the error field of a script failure response
const scriptErrorTitle = "Pre-request script error"

// requestBody is the payload of /api/request, /api/script and /api/curl
type requestBody struct {
	Method           string         `json:"method"`
	URL              string         `json:"url"`
	Headers          map[string]any `json:"headers"`
	Data             any            `json:"data"`
	PreRequestScript string         `json:"preRequestScript"`
}

func (b requestBody) submission() runner.Submission {
	headers := make(map[string]string, len(b.Headers))
	for name, value := range b.Headers {
		switch v := value.(type) {
		case nil:
		case string:
			headers[name] = v
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				headers[name] = fmt.Sprint(v)
				continue
			}
			headers[name] = string(raw)
		}
	}

	return runner.Submission{
		Request: sandbox.RequestSpec{
			Method:  b.Method,
			URL:     b.URL,
			Headers: headers,
			Body:    b.Data,
		},
		PreRequestScript: b.PreRequestScript,
	}
}

type responseBody struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Data    any               `json:"data"`
}

func newResponseBody(resp *httpclient.Response) *responseBody {
	if resp == nil {
		return nil
	}
	return &responseBody{Status: resp.Status, Headers: resp.Headers, Data: resp.Data}
}

type scriptFailureBody struct {
	Error   string                `json:"error"`
	Details string                `json:"details"`
	Kind    sandbox.ErrorKind     `json:"kind"`
	Console []sandbox.ConsoleLine `json:"console,omitempty"`
}

type sendFailureBody struct {
	Error    string        `json:"error"`
	Response *responseBody `json:"response"`
}

type scriptSuccessBody struct {
	Request     sandbox.RequestSpec   `json:"request"`
	Environment sandbox.Environment   `json:"environment"`
	Console     []sandbox.ConsoleLine `json:"console,omitempty"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, requireURL bool) (requestBody, bool) {
	var body requestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&body); err != nil {
		s.logger.Warn("decoding request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return body, false
	}
	if requireURL && strings.TrimSpace(body.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return body, false
	}
	return body, true
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	// the script may still fill in the url, so it is checked after it ran
	body, ok := s.decode(w, r, false)
	if !ok {
		return
	}

	out, err := s.runner.Run(r.Context(), body.submission())
	if err != nil {
		var scriptErr *runner.ScriptError
		if errors.As(err, &scriptErr) {
			writeJSON(w, http.StatusBadRequest, scriptFailureBody{
				Error:   scriptErrorTitle,
				Details: scriptErr.Failure.Message,
				Kind:    scriptErr.Failure.Kind,
				Console: scriptErr.Console,
			})
			return
		}

		if errors.Is(err, httpclient.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		failure := sendFailureBody{Error: err.Error()}
		var respErr *httpclient.ResponseError
		if errors.As(err, &respErr) {
			failure.Error = respErr.Error()
			failure.Response = newResponseBody(respErr.Response)
		}
		s.logger.Warn("sending request", zap.String("url", body.URL), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, failure)
		return
	}

	writeJSON(w, http.StatusOK, newResponseBody(out.Response))
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r, false)
	if !ok {
		return
	}

	result := s.runner.DryRun(r.Context(), body.submission())
	if result.Failure != nil {
		writeJSON(w, http.StatusBadRequest, scriptFailureBody{
			Error:   scriptErrorTitle,
			Details: result.Failure.Message,
			Kind:    result.Failure.Kind,
			Console: result.Console,
		})
		return
	}

	writeJSON(w, http.StatusOK, scriptSuccessBody{
		Request:     result.Success.Request,
		Environment: result.Success.Environment,
		Console:     result.Console,
	})
}

func (s *Server) handleCurl(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r, true)
	if !ok {
		return
	}

	curl, err := httpclient.CurlCommand(body.submission().Request)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"curl": curl})
}

func (s *Server) handleListHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.history.List())
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, ok := s.history.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "history entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	s.history.Clear()
	s.logger.Info("cleared history")
	writeJSON(w, http.StatusNoContent, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
