package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fridgebot/fridgebot/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.OpenAIConfig{
		Enabled:            true,
		APIKey:             "test-key",
		BaseURL:            srv.URL + "/v1",
		Model:              "gpt-test",
		TranscriptionModel: "whisper-test",
		TimeoutSeconds:     5,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c.(*client)
}

func TestParseProducts(t *testing.T) {
	t.Parallel()

	var gotModel string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant",`+
			`"content":"{\"products\":[{\"name\":\"Tomato\",\"quantity\":3,\"unit\":\"pcs\"},{\"name\":\"basil\",\"quantity\":null,\"unit\":\"\"}]}"}}]}`)
	})

	products, err := c.ParseProducts(context.Background(), "tomato 3 pcs and basil")
	if err != nil {
		t.Fatalf("ParseProducts() error = %v", err)
	}
	if gotModel != "gpt-test" {
		t.Errorf("model = %q, want gpt-test", gotModel)
	}
	if len(products) != 2 || products[0].Name != "tomato" || products[1].Quantity.Valid {
		t.Errorf("ParseProducts() = %+v", products)
	}
}

func TestParseProducts_APIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	})

	if _, err := c.ParseProducts(context.Background(), "milk"); err == nil {
		t.Fatal("ParseProducts() error = nil, want error")
	}
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	var gotFile string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			if files := r.MultipartForm.File["file"]; len(files) == 1 {
				gotFile = files[0].Filename
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"milk 1 l, bread"}`)
	})

	text, err := c.Transcribe(context.Background(), "audio/ogg", []byte("OggS"))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "milk 1 l, bread" {
		t.Errorf("Transcribe() = %q", text)
	}
	if gotFile != "voice.ogg" {
		t.Errorf("uploaded file name = %q, want voice.ogg", gotFile)
	}

	if _, err := c.Transcribe(context.Background(), "", nil); err == nil {
		t.Error("Transcribe() without audio succeeded")
	}
}

func TestAudioFileName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"audio/ogg":              "voice.ogg",
		"audio/ogg; codecs=opus": "voice.ogg",
		"audio/mpeg":             "voice.mp3",
		"application/x-unknown":  "voice.ogg",
	}
	for in, want := range tests {
		if got := audioFileName(in); got != want {
			t.Errorf("audioFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
