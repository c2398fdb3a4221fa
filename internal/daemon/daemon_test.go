package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"testing"

	"readinghub/internal/api"
	"readinghub/internal/config"
	"readinghub/internal/daemon"
	"readinghub/internal/notes"
	"readinghub/internal/ocr"
	"readinghub/internal/services/cloudocr"
	"readinghub/internal/testsupport"
	"readinghub/internal/usage"
)

type daemonHarness struct {
	cfg    *config.Config
	store  *notes.Store
	fx     testsupport.Fixture
	ocrsrv *testsupport.OCRServer
	daemon *daemon.Daemon
	base   string
	token  string
}

func newDaemonHarness(t *testing.T, opts ...testsupport.ConfigOption) *daemonHarness {
	t.Helper()
	ocrsrv := testsupport.NewOCRServer(t)
	opts = append([]testsupport.ConfigOption{testsupport.WithOCRBaseURL(ocrsrv.API.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	fx := testsupport.SeedFixture(t, store)

	runner := ocr.NewRunner(cfg, store, cloudocr.NewClient(cfg.OCR.BaseURL), usage.NewRecorder(store, nil), nil, nil)
	d, err := daemon.New(cfg, store, runner, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(d.Stop)

	return &daemonHarness{
		cfg:    cfg,
		store:  store,
		fx:     fx,
		ocrsrv: ocrsrv,
		daemon: d,
		base:   "http://" + d.Addr(),
		token:  cfg.Paths.APIToken,
	}
}

func (h *daemonHarness) request(t *testing.T, method, path string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.base+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestDaemonStartStop(t *testing.T) {
	h := newDaemonHarness(t)

	status := h.daemon.Status(context.Background())
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.DatabasePath == "" || status.LockFilePath == "" {
		t.Fatalf("expected paths in status: %#v", status)
	}

	if err := h.daemon.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}

	h.daemon.Stop()
	if h.daemon.Status(context.Background()).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestAPIRunAndPending(t *testing.T) {
	h := newDaemonHarness(t)
	note := testsupport.SeedImageNote(t, h.store, h.fx, h.ocrsrv.ImageURL("api.png"))
	h.ocrsrv.RespondWith("api.png", "api extracted text")

	resp := h.request(t, http.MethodGet, "/api/ocr/pending", nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header on API responses")
	}
	var pending api.PendingResponse
	decodeInto(t, resp, &pending)
	if pending.Pending != 1 {
		t.Fatalf("expected 1 pending, got %d", pending.Pending)
	}

	resp = h.request(t, http.MethodPost, "/api/ocr/run", []byte(`{"max_items":5}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run returned %d", resp.StatusCode)
	}
	var result api.BatchResult
	decodeInto(t, resp, &result)
	if result.Succeeded != 1 || result.Failed != 0 {
		t.Fatalf("unexpected batch result: %#v", result)
	}

	resp = h.request(t, http.MethodGet, "/api/ocr/transcriptions?note_id="+note.ID, nil)
	var statuses api.TranscriptionStatusesResponse
	decodeInto(t, resp, &statuses)
	if statuses.Statuses[note.ID] != "completed" {
		t.Fatalf("unexpected statuses: %#v", statuses)
	}

	resp = h.request(t, http.MethodGet, "/api/ocr/transcription?note_id="+note.ID, nil)
	var tr api.TranscriptionResponse
	decodeInto(t, resp, &tr)
	if tr.Transcription.ExtractedText != "api extracted text" {
		t.Fatalf("unexpected transcription: %#v", tr.Transcription)
	}
}

func TestAPIRetryAndTelemetry(t *testing.T) {
	h := newDaemonHarness(t)
	note := testsupport.SeedImageNote(t, h.store, h.fx, h.ocrsrv.ImageURL("flaky.png"))
	h.ocrsrv.FailWith("flaky.png", "first pass bad")

	resp := h.request(t, http.MethodPost, "/api/ocr/run", nil)
	var result api.BatchResult
	decodeInto(t, resp, &result)
	if result.Failed != 1 {
		t.Fatalf("expected seed failure, got %#v", result)
	}

	h.ocrsrv.RespondWith("flaky.png", "second pass good")
	body, _ := json.Marshal(map[string][]string{"note_ids": {note.ID}})
	resp = h.request(t, http.MethodPost, "/api/ocr/retry", body)
	decodeInto(t, resp, &result)
	if result.Succeeded != 1 {
		t.Fatalf("expected retry success, got %#v", result)
	}

	resp = h.request(t, http.MethodGet, "/api/ocr/stats", nil)
	var stats api.UsageStatsResponse
	decodeInto(t, resp, &stats)
	if len(stats.Stats) != 1 || stats.Stats[0].SuccessCount != 1 || stats.Stats[0].FailureCount != 1 {
		t.Fatalf("unexpected usage stats: %#v", stats.Stats)
	}

	resp = h.request(t, http.MethodGet, "/api/ocr/logs?limit=10", nil)
	var logs api.LogListResponse
	decodeInto(t, resp, &logs)
	if len(logs.Logs) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(logs.Logs))
	}
}

func TestAPINotesAndSystemStats(t *testing.T) {
	h := newDaemonHarness(t)
	testsupport.SeedImageNote(t, h.store, h.fx, h.ocrsrv.ImageURL("one.png"))
	testsupport.SeedImageNote(t, h.store, h.fx, h.ocrsrv.ImageURL("two.png"))

	resp := h.request(t, http.MethodGet, "/api/notes?user_id="+h.fx.User.ID, nil)
	var listed api.NoteListResponse
	decodeInto(t, resp, &listed)
	if len(listed.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(listed.Notes))
	}

	resp = h.request(t, http.MethodGet, "/api/notes?type=photo", nil)
	decodeInto(t, resp, &listed)
	if len(listed.Notes) != 2 {
		t.Fatalf("expected 2 photo notes, got %d", len(listed.Notes))
	}

	resp = h.request(t, http.MethodGet, "/api/notes?type=doodle", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown note type, got %d", resp.StatusCode)
	}

	resp = h.request(t, http.MethodGet, "/api/stats", nil)
	var stats api.SystemStats
	decodeInto(t, resp, &stats)
	if stats.Notes != 2 || stats.Users != 1 || stats.Books != 1 {
		t.Fatalf("unexpected system stats: %#v", stats)
	}
}

func TestAPIShareCard(t *testing.T) {
	h := newDaemonHarness(t)
	public := testsupport.SeedImageNote(t, h.store, h.fx, h.ocrsrv.ImageURL("card.png"))

	ctx := context.Background()
	if won, err := h.store.ClaimTranscription(ctx, public.ID); err != nil || !won {
		t.Fatalf("seed claim failed: %v won=%v", err, won)
	}
	if err := h.store.CompleteTranscription(ctx, public.ID, "a shareable quotation"); err != nil {
		t.Fatalf("seed complete: %v", err)
	}

	// Share cards are public, no Authorization header.
	resp, err := http.Get(h.base + "/api/share/card?note_id=" + public.ID)
	if err != nil {
		t.Fatalf("GET share card failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected png content type, got %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode card: %v", err)
	}
	if img.Bounds().Dx() != h.cfg.ShareCard.Width {
		t.Fatalf("unexpected card width %d", img.Bounds().Dx())
	}

	private, err := h.store.CreateNote(ctx, notes.NewNote{
		UserID:   h.fx.User.ID,
		BookID:   h.fx.Book.ID,
		Type:     notes.TypePhoto,
		ImageURL: h.ocrsrv.ImageURL("private.png"),
		IsPublic: false,
	})
	if err != nil {
		t.Fatalf("create private note: %v", err)
	}
	resp, err = http.Get(h.base + "/api/share/card?note_id=" + private.ID)
	if err != nil {
		t.Fatalf("GET private card failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for private note, got %d", resp.StatusCode)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	h := newDaemonHarness(t, testsupport.WithAPIToken("hub-secret"))

	resp, err := http.Get(h.base + "/api/ocr/pending")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, h.base+"/api/ocr/pending", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", resp.StatusCode)
	}

	resp = h.request(t, http.MethodGet, "/api/ocr/pending", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}

	// Status stays public even when a token is set.
	resp, err = http.Get(h.base + "/api/status")
	if err != nil {
		t.Fatalf("GET status failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected public status endpoint, got %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running status")
	}
}
