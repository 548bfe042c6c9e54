// Package proxy verifies that a rotating proxy endpoint is usable before a
// batch routes real traffic through it.
package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jmdev.ca/glade-room-bot/internal/site"
)

// Check issues a request through the proxy against an IP-echo endpoint and
// returns the exit IP the proxy presented. testURL is expected to answer with
// a JSON body carrying an "origin" field; a plain-text IP body works too.
func Check(proxyURL, testURL string, timeout time.Duration) (string, error) {
	parsed, err := site.ParseProxyURL(proxyURL)
	if err != nil {
		return "", err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(parsed)

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}

	resp, err := client.Get(testURL)
	if err != nil {
		return "", fmt.Errorf("proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("proxy test returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read proxy test response: %w", err)
	}

	var echoed struct {
		Origin string `json:"origin"`
	}
	if err := json.Unmarshal(body, &echoed); err == nil && echoed.Origin != "" {
		return echoed.Origin, nil
	}

	return strings.TrimSpace(string(body)), nil
}
