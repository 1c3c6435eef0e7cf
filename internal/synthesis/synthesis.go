package synthesis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"thooimai-go/internal/logger"
	"thooimai-go/internal/sarvam"
)

const (
	provider = "sarvam-tts"
	// MaxInputChars is the provider's per-call input limit.
	MaxInputChars = 500
	// ContentType of the audio the provider returns.
	ContentType = "audio/wav"
)

type ttsRequest struct {
	Inputs              []string `json:"inputs"`
	TargetLanguageCode  string   `json:"target_language_code"`
	Speaker             string   `json:"speaker"`
	Model               string   `json:"model"`
	EnablePreprocessing bool     `json:"enable_preprocessing"`
}

type ttsResponse struct {
	Audios []string `json:"audios"`
}

type Synthesizer struct {
	client  *sarvam.Client
	timeout time.Duration
	log     *logger.Logger
}

func NewSynthesizer(client *sarvam.Client, timeout time.Duration, log *logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.Discard()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Synthesizer{client: client, timeout: timeout, log: log.Component("synthesis")}
}

// Synthesize returns spoken English audio, or nil on any failure.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) []byte {
	text = Truncate(text, MaxInputChars)
	if text == "" {
		return nil
	}
	audio, err := s.synthesize(ctx, text)
	if err != nil {
		s.log.WithError(err).Warn("speech synthesis failed, continuing without playback audio")
		return nil
	}
	return audio
}

func (s *Synthesizer) synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := s.client.PostJSON(ctx, provider, "/text-to-speech", ttsRequest{
		Inputs:              []string{text},
		TargetLanguageCode:  "en-IN",
		Speaker:             "meera",
		Model:               "bulbul:v1",
		EnablePreprocessing: true,
	})
	if err != nil {
		return nil, err
	}
	var resp ttsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Audios) == 0 || resp.Audios[0] == "" {
		return nil, errors.New("no audio in response")
	}
	return base64.StdEncoding.DecodeString(resp.Audios[0])
}

// Truncate keeps at most n characters of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
