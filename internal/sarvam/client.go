// Package sarvam talks to the Sarvam AI speech and translation REST API.
package sarvam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"thooimai-go/internal/config"
	"thooimai-go/internal/errs"
	"thooimai-go/internal/logger"
)

const (
	DefaultBaseURL = "https://api.sarvam.ai"
	authHeader     = "api-subscription-key"
	maxErrorBody   = 2048
)

type Options struct {
	BaseURL       string
	Credentials   config.CredentialsProvider
	HTTPClient    *http.Client
	MaxRetries    uint64
	RetryInterval time.Duration
	Logger        *logger.Logger
}

// Client is safe for concurrent use; it holds no per-request state.
type Client struct {
	baseURL       string
	creds         config.CredentialsProvider
	http          *http.Client
	maxRetries    uint64
	retryInterval time.Duration
	log           *logger.Logger
}

func New(opts Options) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		creds:         opts.Credentials,
		http:          opts.HTTPClient,
		maxRetries:    opts.MaxRetries,
		retryInterval: opts.RetryInterval,
		log:           opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.creds == nil {
		c.creds = &config.EnvCredentials{}
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.retryInterval <= 0 {
		c.retryInterval = 500 * time.Millisecond
	}
	if c.log == nil {
		c.log = logger.Discard()
	}
	c.log = c.log.Component("sarvam-client")
	return c
}

// FilePart is the uploaded file of a multipart request.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// PostJSON sends payload as JSON and returns the raw 2xx response body.
func (c *Client) PostJSON(ctx context.Context, provider, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &errs.ProviderError{Provider: provider, Err: fmt.Errorf("marshal request: %w", err)}
	}
	return c.do(ctx, provider, path, "application/json", data)
}

// PostMultipart sends form fields plus one file part.
func (c *Client) PostMultipart(ctx context.Context, provider, path string, fields map[string]string, file FilePart) ([]byte, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
	h.Set("Content-Type", file.ContentType)
	part, err := w.CreatePart(h)
	if err == nil {
		_, err = part.Write(file.Data)
	}
	for k, v := range fields {
		if err != nil {
			break
		}
		err = w.WriteField(k, v)
	}
	if err == nil {
		err = w.Close()
	}
	if err != nil {
		return nil, &errs.ProviderError{Provider: provider, Err: fmt.Errorf("build multipart: %w", err)}
	}
	return c.do(ctx, provider, path, w.FormDataContentType(), b.Bytes())
}

func (c *Client) do(ctx context.Context, provider, path, contentType string, payload []byte) ([]byte, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	key := c.creds.CurrentCredentials().SarvamAPIKey
	log := c.log.With("provider", provider).With("endpoint", endpoint)

	var (
		body    []byte
		lastErr error
	)
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			lastErr = &errs.ProviderError{Provider: provider, Err: err}
			return backoff.Permanent(lastErr)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set(authHeader, key)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = &errs.ProviderError{Provider: provider, Err: err}
			log.WithError(err).Warn("provider request failed")
			return lastErr
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = &errs.ProviderError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
			return lastErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = &errs.ProviderError{Provider: provider, StatusCode: resp.StatusCode, Body: truncate(raw)}
			log.WithField("http_status", resp.StatusCode).Warn("provider returned error status")
			if resp.StatusCode < 500 {
				return backoff.Permanent(lastErr)
			}
			return lastErr
		}
		body = raw
		lastErr = nil
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, &errs.ProviderError{Provider: provider, Err: err}
	}
	log.WithField("bytes", len(body)).Debug("provider call succeeded")
	return body, nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
