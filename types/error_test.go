package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("openai")

	assert.Equal(t, ErrUpstreamError, GetErrorCode(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, root)
	assert.Contains(t, err.Error(), "UPSTREAM_ERROR")
	assert.Contains(t, err.Error(), "root")
}

func TestError_WrappedLookup(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrRateLimited, "slow down").WithRetryable(true)
	wrapped := fmt.Errorf("step 1 (extract) failed: %w", inner)

	got, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.Equal(t, ErrRateLimited, GetErrorCode(wrapped))
	assert.True(t, IsRetryable(wrapped))

	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestNewUnknownTopicError(t *testing.T) {
	t.Parallel()

	keys := []string{"developer_tools", "saas", "database"}
	err := NewUnknownTopicError("nope", keys)

	assert.Equal(t, ErrUnknownTopic, err.Code)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	assert.Equal(t, "Unknown topic 'nope'. Valid topics: developer_tools, saas, database", err.Message)
	for _, k := range keys {
		assert.Equal(t, 1, strings.Count(err.Message, k))
	}
}
