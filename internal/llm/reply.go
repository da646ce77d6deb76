package llm

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

// ReplyClient posts {"messages": [...]} and reads {"reply": "..."}.
type ReplyClient struct {
	url string
	c   *http.Client
}

func NewReplyClient(url string, httpClient *http.Client) *ReplyClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ReplyClient{url: strings.TrimSpace(url), c: httpClient}
}

type replyRequest struct {
	Messages []Message `json:"messages"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

func (r *ReplyClient) Complete(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(replyRequest{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.c.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("llm http status %d: %s", resp.StatusCode, string(body))
	}

	var out replyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	return out.Reply, nil
}
