package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackClientPrimarySucceeds(t *testing.T) {
	primary := &stubLLMClient{response: "from primary"}
	fallback := &stubLLMClient{response: "from fallback"}
	client := NewFallbackLLMClient(primary, fallback, nil)

	resp, err := client.Complete(context.Background(), LLMRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "from primary", resp.Text)
	assert.Empty(t, fallback.requests)
}

func TestFallbackClientUsesFallbackOnPrimaryFailure(t *testing.T) {
	primary := &stubLLMClient{err: errors.New("quota exceeded")}
	fallback := &stubLLMClient{response: "from fallback"}
	client := NewFallbackLLMClient(primary, fallback, nil)

	resp, err := client.Complete(context.Background(), LLMRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", resp.Text)
	require.Len(t, primary.requests, 1)
	require.Len(t, fallback.requests, 1)
}

func TestFallbackClientBothFail(t *testing.T) {
	primary := &stubLLMClient{err: errors.New("quota exceeded")}
	fallback := &stubLLMClient{err: errors.New("also down")}
	client := NewFallbackLLMClient(primary, fallback, nil)

	_, err := client.Complete(context.Background(), LLMRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "also down")
}

func TestFallbackClientNilFallbackReturnsPrimaryError(t *testing.T) {
	primary := &stubLLMClient{err: errors.New("quota exceeded")}
	client := NewFallbackLLMClient(primary, nil, nil)

	_, err := client.Complete(context.Background(), LLMRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
