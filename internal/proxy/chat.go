package proxy

import (
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultAPIKey is sent to the proxy, which holds the real upstream key.
const DefaultAPIKey = "dummy-key"

// NewChatClient returns an OpenAI-compatible client pointed at baseURL/v1. A nil
// httpClient gets an untimed client so slow upstream misses are measured in full.
func NewChatClient(baseURL, apiKey string, httpClient *http.Client) *openai.Client {
	if apiKey == "" {
		apiKey = DefaultAPIKey
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/v1"
	cfg.HTTPClient = httpClient
	return openai.NewClientWithConfig(cfg)
}
