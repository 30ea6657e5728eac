package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := NotFound("session")
	wrapped := Wrap(base, "failed to load page")

	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Equal(t, "failed to load page: session not found", wrapped.Error())
}

func TestWrapPlainError(t *testing.T) {
	cause := stderrors.New("connection refused")
	wrapped := Wrapf(cause, "failed to reach %s", "db")

	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, cause))
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeConflict, stderrors.New("pending"))
	assert.Equal(t, CodeConflict, GetCode(err))
	assert.Equal(t, "pending", err.Error())

	retagged := WithCode(CodeDatabaseError, Wrap(stderrors.New("broken pipe"), "failed to get session"))
	assert.Equal(t, CodeDatabaseError, GetCode(retagged))
	assert.Equal(t, "failed to get session: broken pipe", retagged.Error())
	assert.Nil(t, WithCode(CodeConflict, nil))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{NotFound("session"), http.StatusNotFound},
		{InvalidInput("bad"), http.StatusBadRequest},
		{Conflict("pending"), http.StatusConflict},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{ExternalServiceError("inference", stderrors.New("timeout")), http.StatusBadGateway},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatus(tt.err), tt.err.Error())
	}
}
