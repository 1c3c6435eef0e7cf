package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
)

// Credentials are the provider API keys a pipeline run needs.
type Credentials struct {
	SarvamAPIKey string
	LLMAPIKey    string
}

// CredentialsProvider hands out the keys to use for the next outbound call.
type CredentialsProvider interface {
	CurrentCredentials() Credentials
}

// EnvCredentials reads keys from the environment on every call. With Reload set
// the .env files are overlaid first so rotated keys apply without a restart.
type EnvCredentials struct {
	Reload bool
	Files  []string

	mu sync.Mutex
}

func (e *EnvCredentials) CurrentCredentials() Credentials {
	if e.Reload {
		e.mu.Lock()
		_ = godotenv.Overload(e.Files...)
		e.mu.Unlock()
	}
	return Credentials{
		SarvamAPIKey: os.Getenv("SARVAM_API_KEY"),
		LLMAPIKey:    os.Getenv("LLM_API_KEY"),
	}
}

// StaticCredentials always returns the same keys.
type StaticCredentials Credentials

func (s StaticCredentials) CurrentCredentials() Credentials {
	return Credentials(s)
}
