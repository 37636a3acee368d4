package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func originRequest(host, origin string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Host = host
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestCheckSameOrigin(t *testing.T) {
	// Non-browser clients send no Origin header.
	assert.True(t, checkSameOrigin(originRequest("localhost:8080", "")))

	// Same-origin browsers pass whatever address the server listens on.
	assert.True(t, checkSameOrigin(originRequest("localhost:8080", "http://localhost:8080")))
	assert.True(t, checkSameOrigin(originRequest("ops.example.net:9443", "https://ops.example.net:9443")))
	assert.True(t, checkSameOrigin(originRequest("LOCALHOST:8080", "http://localhost:8080")))

	// Cross-origin requests are rejected.
	assert.False(t, checkSameOrigin(originRequest("localhost:8080", "http://evil.example.com")))
	assert.False(t, checkSameOrigin(originRequest("localhost:8080", "http://localhost:9999")))
	assert.False(t, checkSameOrigin(originRequest("localhost:8080", "://not a url")))
}
