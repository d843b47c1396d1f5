package transcriber

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segment.wav")
	if err := os.WriteFile(path, []byte("RIFFfakewav"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestWhisperServerTranscriber_SendsMultipartAndParsesText(t *testing.T) {
	var gotLanguage, gotModel, gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/inference" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotLanguage = r.FormValue("language")
		gotModel = r.FormValue("model")
		if files := r.MultipartForm.File["file"]; len(files) == 1 {
			gotFilename = files[0].Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "今日の進捗を共有します"}`))
	}))
	defer server.Close()

	tr := NewWhisperServerTranscriber(server.URL, "large-v3-turbo")
	text, err := tr.Transcribe(context.Background(), writeTestAudio(t), "ja")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "今日の進捗を共有します" {
		t.Fatalf("unexpected text %q", text)
	}
	if gotLanguage != "ja" || gotModel != "large-v3-turbo" || gotFilename != "segment.wav" {
		t.Fatalf("unexpected form values: language=%q model=%q filename=%q", gotLanguage, gotModel, gotFilename)
	}
}

func TestWhisperServerTranscriber_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	tr := NewWhisperServerTranscriber(server.URL, "large-v3-turbo")
	if _, err := tr.Transcribe(context.Background(), writeTestAudio(t), "ja"); err == nil {
		t.Fatal("expected error for 5xx response")
	}
}

func TestCleanWhisperText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[BLANK_AUDIO]", ""},
		{" こんにちは ", "こんにちは"},
		{"[MUSIC] Thank you (applause)", "Thank you"},
		{"おはようございます [BLANK_AUDIO]", "おはようございます"},
	}
	for _, tt := range tests {
		if got := cleanWhisperText(tt.in); got != tt.want {
			t.Errorf("cleanWhisperText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
