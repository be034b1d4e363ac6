//go:build integration

package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// sendRequest issues method against serverURL+path with an optional body and headers.
func sendRequest(t *testing.T, method, url, body string, headers map[string]string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err, "failed to create request")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	require.NoError(t, err, "failed to send request")
	return resp
}

// sendJSON sends a JSON body and asks for a JSON response.
func sendJSON(t *testing.T, method, url, body string, headers map[string]string) *http.Response {
	t.Helper()
	h := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	for k, v := range headers {
		h[k] = v
	}
	return sendRequest(t, method, url, body, h)
}

// sendXML sends an XML body and asks for an XML response.
func sendXML(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	return sendRequest(t, method, url, body, map[string]string{
		"Content-Type": "application/xml",
		"Accept":       "application/xml",
	})
}

// readBody reads and closes the response body.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer closeBody(resp)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	return string(b)
}

// closeBody closes the response body, ignoring errors.
func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}
