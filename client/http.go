package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound is returned when the node has no such name or record.
var ErrNotFound = errors.New("not found")

// httpClient bounds every request.
var httpClient = &http.Client{Timeout: 30 * time.Second}

// httpGet performs a GET request and decodes the JSON response.
func httpGet(url string, result any) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(url, resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// httpGetBytes performs a GET request and returns the raw body.
func httpGetBytes(url string) ([]byte, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(url, resp)
	}

	return io.ReadAll(resp.Body)
}

// statusError turns a non-200 response into an error carrying the server message.
func statusError(url string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w: %s", url, ErrNotFound, body.Error)
	}

	return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, body.Error)
}
