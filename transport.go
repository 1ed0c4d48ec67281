package guardian

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// Sender is the transport boundary of the SDK. The client never manages
// connection pooling, retries, or TLS itself; it hands a fully-formed
// request to a Sender and interprets the status code and body.
type Sender interface {
	Send(method, url string, headers map[string]string, body []byte) (statusCode int, responseBody []byte, err error)
}

// httpSender is the default Sender backed by net/http.
type httpSender struct {
	client *http.Client
}

// Send performs one synchronous request/response exchange. The response
// body is always drained and closed before returning.
func (s *httpSender) Send(method, url string, headers map[string]string, body []byte) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
