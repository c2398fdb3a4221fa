package testsupport

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// OCRServer is a fake text-extraction endpoint. Responses are scripted per
// image name; unscripted images succeed with a canned text. The paired image
// host serves a tagged body so the extraction handler can recover which
// image a request carried.
type OCRServer struct {
	Images *httptest.Server
	API    *httptest.Server

	mu       sync.Mutex
	texts    map[string]string
	failures map[string]string
	calls    int
}

const imageBodyPrefix = "fake-image:"

// NewOCRServer starts an image host and an extraction API for tests.
// Both servers shut down on test cleanup.
func NewOCRServer(t testing.TB) *OCRServer {
	t.Helper()
	srv := &OCRServer{
		texts:    make(map[string]string),
		failures: make(map[string]string),
	}

	srv.Images = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte(imageBodyPrefix + strings.TrimPrefix(r.URL.Path, "/")))
	}))

	srv.API = httptest.NewServer(http.HandlerFunc(srv.handleExtract))

	t.Cleanup(srv.Images.Close)
	t.Cleanup(srv.API.Close)
	return srv
}

// ImageURL returns a URL on the fake image host for the given name.
func (s *OCRServer) ImageURL(name string) string {
	return s.Images.URL + "/" + strings.TrimPrefix(name, "/")
}

// RespondWith scripts the text returned for an image name. It replaces any
// previously scripted failure for that name.
func (s *OCRServer) RespondWith(name, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[name] = text
	delete(s.failures, name)
}

// FailWith scripts a 500 response with the given message for an image name.
// It replaces any previously scripted text for that name.
func (s *OCRServer) FailWith(name, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = message
	delete(s.texts, name)
}

// Calls reports how many extraction requests the API has served.
func (s *OCRServer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *OCRServer) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image    string `json:"image"`
		MimeType string `json:"mimeType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		http.Error(w, `{"error":"bad image encoding"}`, http.StatusBadRequest)
		return
	}
	name := strings.TrimPrefix(string(decoded), imageBodyPrefix)

	s.mu.Lock()
	s.calls++
	text, scripted := s.texts[name]
	failure, failing := s.failures[name]
	s.mu.Unlock()

	if failing {
		http.Error(w, `{"error":"`+failure+`"}`, http.StatusInternalServerError)
		return
	}
	if !scripted {
		text = "extracted text"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
}
