package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"readinghub/internal/api"
	"readinghub/internal/client"
)

func TestClientRoundTrips(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		if r.Body != nil {
			buf := make([]byte, 4096)
			n, _ := r.Body.Read(buf)
			gotBody = buf[:n]
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/ocr/pending"):
			_ = json.NewEncoder(w).Encode(api.PendingResponse{Pending: 7})
		case strings.HasPrefix(r.URL.Path, "/api/ocr/run"):
			_ = json.NewEncoder(w).Encode(api.BatchResult{Succeeded: 2, Message: "ok"})
		case strings.HasPrefix(r.URL.Path, "/api/ocr/transcriptions"):
			_ = json.NewEncoder(w).Encode(api.TranscriptionStatusesResponse{
				Statuses: map[string]string{"n1": "completed"},
			})
		case strings.HasPrefix(r.URL.Path, "/api/notes"):
			_ = json.NewEncoder(w).Encode(api.NoteListResponse{Notes: []api.Note{{ID: "n1"}}})
		default:
			_ = json.NewEncoder(w).Encode(api.DaemonStatus{Running: true})
		}
	}))
	defer server.Close()

	c := client.New(server.URL, "cli-token")
	ctx := context.Background()

	pending, err := c.PendingCount(ctx)
	if err != nil || pending != 7 {
		t.Fatalf("PendingCount = %d, %v", pending, err)
	}
	if gotAuth != "Bearer cli-token" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}

	result, err := c.RunBatch(ctx, 5)
	if err != nil || result.Succeeded != 2 {
		t.Fatalf("RunBatch = %#v, %v", result, err)
	}
	if !strings.Contains(string(gotBody), `"max_items":5`) {
		t.Fatalf("unexpected run body: %s", gotBody)
	}

	statuses, err := c.TranscriptionStatuses(ctx, []string{"n1", "n2"})
	if err != nil || statuses["n1"] != "completed" {
		t.Fatalf("TranscriptionStatuses = %#v, %v", statuses, err)
	}
	if !strings.Contains(gotPath, "note_id=n1") || !strings.Contains(gotPath, "note_id=n2") {
		t.Fatalf("expected note ids in query, got %q", gotPath)
	}

	listed, err := c.Notes(ctx, client.NoteQuery{UserID: "u1", Limit: 20})
	if err != nil || len(listed) != 1 {
		t.Fatalf("Notes = %#v, %v", listed, err)
	}
	if !strings.Contains(gotPath, "user_id=u1") || !strings.Contains(gotPath, "limit=20") {
		t.Fatalf("expected filters in query, got %q", gotPath)
	}

	status, err := c.Status(ctx)
	if err != nil || !status.Running {
		t.Fatalf("Status = %#v, %v", status, err)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer server.Close()

	c := client.New(server.URL, "")
	_, err := c.PendingCount(context.Background())
	if err == nil {
		t.Fatal("expected error for 401")
	}
	if !strings.Contains(err.Error(), "unauthorized") || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status and message in error, got %v", err)
	}
}
