// Package issuerstub serves a programmable stand-in for the Open Campus issuer API.
package issuerstub

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Call is one request the stub received.
type Call struct {
	APIKey string
	Body   map[string]any
}

// Server stands in for the Open Campus issuer API. It answers 200 with
// a credential id until told otherwise.
type Server struct {
	server *httptest.Server

	mu          sync.Mutex
	status      int
	body        string
	contentType string
	calls       []Call
}

func New() *Server {
	f := &Server{
		status:      http.StatusOK,
		body:        `{"credentialId":"vc-e2e-1","status":"issued"}`,
		contentType: "application/json",
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *Server) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.calls = append(f.calls, Call{APIKey: r.Header.Get("X-API-KEY"), Body: body})
	status, payload, contentType := f.status, f.body, f.contentType
	f.mu.Unlock()

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(payload))
}

// URL is the base URL the gateway is pointed at.
func (f *Server) URL() string {
	return f.server.URL
}

// Respond sets the status and body of every following answer.
func (f *Server) Respond(status int, body, contentType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body, f.contentType = status, body, contentType
}

// Calls returns a copy of the requests received so far.
func (f *Server) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *Server) Close() {
	f.server.Close()
}
