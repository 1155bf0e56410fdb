// Package telegramtest provides a fake Telegram Bot API server for tests.
package telegramtest

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// Call is one Bot API request received by the fake server.
type Call struct {
	Token  string
	Method string
	Form   url.Values
}

type response struct {
	status int
	body   string
}

// Server is a fake Bot API. Unless overridden with Respond, sendMessage,
// setWebhook and getMe succeed.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	calls     []Call
	responses map[string][]response
}

// NewServer starts a fake Bot API server that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{responses: make(map[string][]response)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Respond queues a response for the next call of method. Queued responses
// are used in order; once exhausted the default response applies.
func (s *Server) Respond(method string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[method] = append(s.responses[method], response{status: status, body: body})
}

// Calls returns the received calls of method, or all calls if method is empty.
func (s *Server) Calls(method string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	rest, ok := strings.CutPrefix(r.URL.Path, "/bot")
	i := strings.LastIndexByte(rest, '/')
	if !ok || i < 0 {
		http.NotFound(w, r)
		return
	}
	call := Call{Token: rest[:i], Method: rest[i+1:]}

	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	call.Form = r.Form

	s.mu.Lock()
	s.calls = append(s.calls, call)
	resp, queued := s.next(call.Method)
	s.mu.Unlock()

	if !queued {
		resp = defaultResponse(call)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	io.WriteString(w, resp.body)
}

func (s *Server) next(method string) (response, bool) {
	q := s.responses[method]
	if len(q) == 0 {
		return response{}, false
	}
	s.responses[method] = q[1:]
	return q[0], true
}

func defaultResponse(c Call) response {
	switch c.Method {
	case "sendMessage":
		return response{status: http.StatusOK, body: `{"ok":true,"result":{"message_id":1,"date":1700000000,"chat":{"id":` + c.Form.Get("chat_id") + `,"type":"private"},"text":"ok"}}`}
	case "setWebhook":
		return response{status: http.StatusOK, body: `{"ok":true,"result":true,"description":"Webhook was set"}`}
	case "getMe":
		return response{status: http.StatusOK, body: `{"ok":true,"result":{"id":123456,"is_bot":true,"first_name":"Nano Banana","username":"nano_banana_bot"}}`}
	default:
		return response{status: http.StatusNotFound, body: `{"ok":false,"error_code":404,"description":"Not Found"}`}
	}
}

// BadRequest is a Bot API refusal body with the given description.
func BadRequest(description string) string {
	return `{"ok":false,"error_code":400,"description":"` + description + `"}`
}
