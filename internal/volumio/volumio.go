// Package volumio talks to the local Volumio player's REST API.
package volumio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is the player's REST endpoint on the appliance itself.
const DefaultURL = "http://localhost:3000"

// Item is a queue entry in the player's format.
type Item struct {
	Service string `json:"service"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	URI     string `json:"uri"`
}

// WebRadio builds a web radio queue entry.
func WebRadio(title, uri string) Item {
	return Item{Service: "webradio", Type: "webradio", Title: title, URI: uri}
}

type replaceAndPlayRequest struct {
	Item Item `json:"item"`
}

// Client issues playback commands.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the player at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// ReplaceAndPlay clears the current queue and starts item immediately.
func (c *Client) ReplaceAndPlay(ctx context.Context, item Item) error {
	body, err := json.Marshal(replaceAndPlayRequest{Item: item})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/replaceAndPlay", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("replaceAndPlay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("replaceAndPlay: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
