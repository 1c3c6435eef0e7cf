package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"
	"thooimai-go/internal/config"
	"thooimai-go/internal/dataset"
	"thooimai-go/internal/errs"
	"thooimai-go/internal/logger"
	"thooimai-go/internal/types"
)

const provider = "llm"

type Options struct {
	BaseURL       string
	Model         string
	Credentials   config.CredentialsProvider
	HTTPClient    *http.Client
	Timeout       time.Duration
	MaxRetries    uint64
	RetryInterval time.Duration
	City          string
	Localities    []dataset.Locality
	Logger        *logger.Logger
}

type Extractor struct {
	opts Options
	log  *logger.Logger
}

func New(opts Options) *Extractor {
	if opts.Credentials == nil {
		opts.Credentials = &config.EnvCredentials{}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	if opts.City == "" {
		opts.City = "Madurai"
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Extractor{opts: opts, log: log.Component("extractor")}
}

// Extract derives priority, area and ward from an English description. It never
// fails: any problem yields the default triple with Fallback set.
func (e *Extractor) Extract(ctx context.Context, english string) types.Extraction {
	raw, err := e.complete(ctx, BuildPrompt(english, e.opts.City, e.opts.Localities))
	if err != nil {
		e.log.WithError(err).Warn("field extraction failed, using defaults")
		return types.DefaultExtraction()
	}
	ext, err := Parse(raw)
	if err != nil {
		e.log.WithError(err).WithField("raw", raw).Warn("unparseable extraction output, using defaults")
		return types.DefaultExtraction()
	}
	e.log.WithField("priority", ext.Priority).WithField("area", ext.Area).WithField("ward", ext.Ward).Info("fields extracted")
	return ext
}

func (e *Extractor) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	cfg := openai.DefaultConfig(e.opts.Credentials.CurrentCredentials().LLMAPIKey)
	if e.opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(e.opts.BaseURL, "/")
	}
	cfg.HTTPClient = e.opts.HTTPClient
	client := openai.NewClientWithConfig(cfg)

	// a literal 0 is dropped by omitempty
	req := openai.ChatCompletionRequest{
		Model:       e.opts.Model,
		Temperature: math.SmallestNonzeroFloat32,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var content string
	op := func() error {
		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			perr := &errs.ProviderError{Provider: provider, StatusCode: statusOf(err), Err: err}
			if perr.StatusCode != 0 && perr.StatusCode < 500 {
				return backoff.Permanent(perr)
			}
			return perr
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(&errs.ProviderError{Provider: provider, StatusCode: http.StatusOK, Err: errors.New("no choices")})
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.RetryInterval
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, e.opts.MaxRetries), ctx)); err != nil {
		return "", err
	}
	return content, nil
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// Parse validates model output into an Extraction. Missing or invalid fields
// fall back individually; an unreadable payload is an error.
func Parse(raw string) (types.Extraction, error) {
	cleaned := StripCodeFence(raw)
	if cleaned == "" {
		return types.Extraction{}, errors.New("empty model output")
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return types.Extraction{}, fmt.Errorf("decode extraction: %w", err)
	}
	if fields == nil {
		return types.Extraction{}, errors.New("extraction is not a JSON object")
	}

	ext := types.Extraction{Priority: types.PriorityMedium, Area: types.Unknown, Ward: types.Unknown}
	if s, ok := fields["priority"].(string); ok {
		ext.Priority, _ = types.ParsePriority(s)
	}
	ext.Area = locality(fields["area"])
	ext.Ward = locality(fields["ward"])
	return ext, nil
}

func locality(v any) string {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" && !strings.EqualFold(s, types.Unknown) {
			return s
		}
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return types.Unknown
}
