package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/foxseedlab/kikitorin/internal/transcriber"
)

const whisperRequestTimeout = 120 * time.Second

// nonSpeechTag matches whisper's bracketed non-speech annotations such as
// [BLANK_AUDIO] or (música).
var nonSpeechTag = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// WhisperServerTranscriber posts one segment at a time to a whisper.cpp
// compatible HTTP server.
type WhisperServerTranscriber struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewWhisperServerTranscriber(baseURL, model string) transcriber.Transcriber {
	return &WhisperServerTranscriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: whisperRequestTimeout,
		},
	}
}

type whisperResponse struct {
	Text string `json:"text"`
}

func (t *WhisperServerTranscriber) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open segment audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}
	_ = writer.WriteField("model", t.model)
	_ = writer.WriteField("language", language)
	_ = writer.WriteField("response_format", "json")
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper server request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read whisper response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("whisper server returned %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var parsed whisperResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode whisper response: %w", err)
	}
	return cleanWhisperText(parsed.Text), nil
}

// cleanWhisperText strips bracketed non-speech annotations and collapses the
// whitespace they leave behind.
func cleanWhisperText(text string) string {
	text = nonSpeechTag.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
