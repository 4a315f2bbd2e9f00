package tokenctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tokend/pkg/types"
)

// Client is a thin HTTP client for a running tokend server.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient trims a trailing slash from base and applies the timeout.
func NewClient(base string, timeout time.Duration) *Client {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return &Client{base: base, hc: &http.Client{Timeout: timeout}}
}

func (c *Client) get(path string, out any) error {
	resp, err := c.hc.Get(c.base + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (c *Client) post(path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.hc.Post(c.base+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var e types.ErrorResponse
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("server: %s (status %d)", e.Error, e.Code)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(b))
	}
	return json.Unmarshal(b, out)
}

func (c *Client) Health() (types.HealthResponse, error) {
	var out types.HealthResponse
	err := c.get("/health", &out)
	return out, err
}

func (c *Client) TokenizeDisplay(text string) (types.TokenizeDisplayResponse, error) {
	var out types.TokenizeDisplayResponse
	err := c.post("/tokenize_display", types.TokenizeRequest{Text: text}, &out)
	return out, err
}

func (c *Client) PredictTokens(text string, positions []int) (types.PredictResponse, error) {
	var out types.PredictResponse
	err := c.post("/predict_tokens", types.PredictRequest{Text: text, MaskedPositions: positions}, &out)
	return out, err
}

func (c *Client) PredictContext(text string, positions []int) (types.PredictResponse, error) {
	var out types.PredictResponse
	err := c.post("/predict_context", types.PredictRequest{Text: text, MaskedPositions: positions}, &out)
	return out, err
}

func (c *Client) Embed(texts []string, task string) (types.EmbedResponse, error) {
	var out types.EmbedResponse
	err := c.post("/embed_text", types.EmbedRequest{Texts: texts, Task: task}, &out)
	return out, err
}

func (c *Client) Test() (types.TokenizeDisplayResponse, error) {
	var out types.TokenizeDisplayResponse
	err := c.get("/test", &out)
	return out, err
}

func (c *Client) TestMLM() (types.PredictResponse, error) {
	var out types.PredictResponse
	err := c.get("/test_mlm", &out)
	return out, err
}
