package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEveryCodeHasStatusAndMessage(t *testing.T) {
	for code := range ErrorCodeHTTPStatus {
		_, ok := ErrorCodeMessage[code]
		assert.True(t, ok, "missing default message for %s", code)
	}
	for code := range ErrorCodeMessage {
		_, ok := ErrorCodeHTTPStatus[code]
		assert.True(t, ok, "missing HTTP status for %s", code)
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "tagging model not available", DefaultMessageForCode(ErrCodeAIModelNotAvailable))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("X_1")))
}

func TestClientServerClassification(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeValidation))
	assert.True(t, IsClientError(ErrCodeDocumentTooLarge))
	assert.False(t, IsClientError(ErrCodeAIInferenceFailed))
	assert.True(t, IsServerError(ErrCodeAIInferenceFailed))
	assert.Equal(t, http.StatusBadGateway, HTTPStatusForCode(ErrCodeSplitterFailed))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "NER", ModuleForCode(ErrCodeSplitterFailed))
	assert.Equal(t, "AI", ModuleForCode(ErrCodeAIInferenceFailed))
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
}

//Personal.AI order the ending
