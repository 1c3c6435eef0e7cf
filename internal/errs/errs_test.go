package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Provider: "sarvam-stt", StatusCode: 500, Body: `{"error":"boom"}`}
	assert.Equal(t, `sarvam-stt provider error: status=500 body={"error":"boom"}`, err.Error())

	cause := errors.New("dial tcp: refused")
	err = &ProviderError{Provider: "llm", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "llm provider error: dial tcp: refused", err.Error())
}

func TestPipelineErrorClassification(t *testing.T) {
	inner := &ProviderError{Provider: "sarvam-stt", StatusCode: 500}
	err := fmt.Errorf("assemble: %w", &PipelineError{
		Stage:   "transcribing",
		Kind:    KindUnprocessable,
		Message: "could not transcribe audio, please speak clearly",
		Err:     inner,
	})

	assert.True(t, IsUnprocessable(err))
	assert.Equal(t, "could not transcribe audio, please speak clearly", UserMessage(err))

	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, 500, pe.StatusCode)
}

func TestInternalErrors(t *testing.T) {
	err := &PipelineError{Stage: "persisting", Kind: KindInternal, Message: "could not save report",
		Err: &PersistenceError{Table: "issue_reports", Err: errors.New("timeout")}}
	assert.False(t, IsUnprocessable(err))
	assert.Equal(t, "internal", KindInternal.String())
	assert.Equal(t, "internal error", UserMessage(errors.New("plain")))
	assert.Contains(t, err.Error(), "insert into issue_reports: timeout")
}
