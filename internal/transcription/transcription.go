package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"thooimai-go/internal/errs"
	"thooimai-go/internal/logger"
	"thooimai-go/internal/sarvam"
)

const (
	provider        = "sarvam-stt"
	defaultMimeType = "audio/webm"
	defaultFilename = "recording.webm"
)

var mimeTypes = map[string]string{
	".webm": "audio/webm",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
}

// MimeType maps a filename extension to its audio MIME type, defaulting to webm.
func MimeType(filename string) string {
	if m, ok := mimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return m
	}
	return defaultMimeType
}

// Extension is the inverse of MimeType for the known audio types.
func Extension(mimeType string) string {
	base := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	for ext, m := range mimeTypes {
		if m == base {
			return ext
		}
	}
	return ".webm"
}

type sttResponse struct {
	Transcript string `json:"transcript"`
}

type Recognizer struct {
	client   *sarvam.Client
	model    string
	language string
	timeout  time.Duration
	log      *logger.Logger
}

func NewRecognizer(client *sarvam.Client, timeout time.Duration, log *logger.Logger) *Recognizer {
	if log == nil {
		log = logger.Discard()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Recognizer{
		client:   client,
		model:    "saarika:v2",
		language: "ta-IN",
		timeout:  timeout,
		log:      log.Component("transcription"),
	}
}

// Recognize returns the Tamil transcript of audio. An empty transcript is an error.
func (r *Recognizer) Recognize(ctx context.Context, audio []byte, filename string) (string, error) {
	if filename == "" {
		filename = defaultFilename
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	mime := MimeType(filename)
	log := r.log.With("filename", filename).With("mime_type", mime)
	log.WithField("audio_bytes", len(audio)).Info("starting transcription")

	body, err := r.client.PostMultipart(ctx, provider, "/speech-to-text",
		map[string]string{"language_code": r.language, "model": r.model},
		sarvam.FilePart{Field: "file", Filename: filename, ContentType: mime, Data: audio})
	if err != nil {
		log.WithError(err).Error("transcription request failed")
		return "", err
	}

	var resp sttResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &errs.ProviderError{Provider: provider, StatusCode: 200, Body: string(body), Err: fmt.Errorf("decode transcript: %w", err)}
	}
	text := strings.TrimSpace(resp.Transcript)
	if text == "" {
		log.Warn("provider returned an empty transcript")
		return "", &errs.ProviderError{Provider: provider, StatusCode: 200, Body: string(body), Err: fmt.Errorf("empty transcript")}
	}
	log.WithField("chars", len([]rune(text))).Info("transcription completed")
	return text, nil
}
