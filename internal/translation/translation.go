package translation

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"thooimai-go/internal/logger"
	"thooimai-go/internal/sarvam"
)

const provider = "sarvam-translate"

type translateRequest struct {
	Input               string `json:"input"`
	SourceLanguageCode  string `json:"source_language_code"`
	TargetLanguageCode  string `json:"target_language_code"`
	SpeakerGender       string `json:"speaker_gender"`
	Mode                string `json:"mode"`
	Model               string `json:"model"`
	EnablePreprocessing bool   `json:"enable_preprocessing"`
}

type Translator struct {
	client  *sarvam.Client
	timeout time.Duration
	log     *logger.Logger
}

func NewTranslator(client *sarvam.Client, timeout time.Duration, log *logger.Logger) *Translator {
	if log == nil {
		log = logger.Discard()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Translator{client: client, timeout: timeout, log: log.Component("translation")}
}

// Translate converts Tamil text to English. Provider and transport failures are
// returned; a successful response without a usable translation yields the
// input unchanged.
func (t *Translator) Translate(ctx context.Context, tamil string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	body, err := t.client.PostJSON(ctx, provider, "/translate", translateRequest{
		Input:               tamil,
		SourceLanguageCode:  "ta-IN",
		TargetLanguageCode:  "en-IN",
		SpeakerGender:       "Female",
		Mode:                "formal",
		Model:               "mayura:v1",
		EnablePreprocessing: true,
	})
	if err != nil {
		t.log.WithError(err).Error("translation request failed")
		return "", err
	}

	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		t.log.WithError(err).Warn("unreadable translation response, keeping source text")
		return tamil, nil
	}
	translated, _ := resp["translated_text"].(string)
	if translated = strings.TrimSpace(translated); translated == "" {
		t.log.Warn("translation response has no translated_text, keeping source text")
		return tamil, nil
	}
	return translated, nil
}
