package cloudocr_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"readinghub/internal/services/cloudocr"
	"readinghub/internal/testsupport"
)

func TestExtractTextRoundTrip(t *testing.T) {
	ocr := testsupport.NewOCRServer(t)
	ocr.RespondWith("page-12.png", "A quiet mind reads further.")

	client := cloudocr.NewClient(ocr.API.URL)
	text, err := client.ExtractText(context.Background(), ocr.ImageURL("page-12.png"))
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if text != "A quiet mind reads further." {
		t.Fatalf("unexpected text: %q", text)
	}
	if ocr.Calls() != 1 {
		t.Fatalf("expected one extraction call, got %d", ocr.Calls())
	}
}

func TestExtractTextSurfacesAPIError(t *testing.T) {
	ocr := testsupport.NewOCRServer(t)
	ocr.FailWith("blurry.png", "image unreadable")

	client := cloudocr.NewClient(ocr.API.URL)
	_, err := client.ExtractText(context.Background(), ocr.ImageURL("blurry.png"))
	if err == nil {
		t.Fatal("expected error for failing extraction")
	}
	if !strings.Contains(err.Error(), "image unreadable") {
		t.Fatalf("expected api message in error, got %v", err)
	}
}

func TestExtractTextRejectsEmptyText(t *testing.T) {
	ocr := testsupport.NewOCRServer(t)
	ocr.RespondWith("blank.png", "   ")

	client := cloudocr.NewClient(ocr.API.URL)
	_, err := client.ExtractText(context.Background(), ocr.ImageURL("blank.png"))
	if err == nil {
		t.Fatal("expected error for blank extraction result")
	}
}

func TestExtractTextSendsBearerToken(t *testing.T) {
	ocr := testsupport.NewOCRServer(t)

	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"ok"}`))
	}))
	defer api.Close()

	client := cloudocr.NewClient(api.URL, cloudocr.WithAuthToken("secret-token"))
	if _, err := client.ExtractText(context.Background(), ocr.ImageURL("auth.png")); err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
}

func TestExtractTextEnforcesImageSizeCap(t *testing.T) {
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer images.Close()

	client := cloudocr.NewClient("http://127.0.0.1:0", cloudocr.WithMaxImageBytes(1024))
	_, err := client.ExtractText(context.Background(), images.URL+"/huge.png")
	if err == nil {
		t.Fatal("expected error for oversized image")
	}
	if !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected size cap error, got %v", err)
	}
}

func TestExtractTextRequiresImageURL(t *testing.T) {
	client := cloudocr.NewClient("http://127.0.0.1:0")
	if _, err := client.ExtractText(context.Background(), "  "); err == nil {
		t.Fatal("expected error for missing image url")
	}
}
