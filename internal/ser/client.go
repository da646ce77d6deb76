// Package ser is the client for the remote speech-emotion-recognition service.
package ser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"emovox/internal/outcome"
	"emovox/pkg/pcm"
)

const Neutral = "neutral"

// DefaultVocabulary is the closed label set the session reasons about.
var DefaultVocabulary = []string{"neutral", "happy", "sad", "surprise", "anger"}

var ErrUnknownLabel = errors.New("ser: label outside vocabulary")

// Emotion is the top-scoring label of one clip.
type Emotion struct {
	Label      string
	Confidence float64
}

// Unavailable is the degraded default returned whenever classification fails.
var Unavailable = Emotion{Label: Neutral, Confidence: 0}

type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type Response struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
	Raw        []Score `json:"raw"`
}

type Client struct {
	url   string
	vocab map[string]bool
	c     *http.Client
}

// NewClient targets url, the full endpoint (e.g. http://localhost:8001/ser).
// A nil httpClient gets a 30s timeout client.
func NewClient(url string, vocabulary []string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if len(vocabulary) == 0 {
		vocabulary = DefaultVocabulary
	}
	vocab := make(map[string]bool, len(vocabulary))
	for _, v := range vocabulary {
		vocab[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return &Client{url: strings.TrimSpace(url), vocab: vocab, c: httpClient}
}

// Classify never fails; any transport, protocol or vocabulary problem yields
// Degraded(Unavailable).
func (c *Client) Classify(ctx context.Context, clip pcm.Clip) outcome.Result[Emotion] {
	resp, err := c.post(ctx, clip)
	if err != nil {
		log.Warn("SER request failed", "err", err)
		return outcome.Degraded(Unavailable, err)
	}

	top := best(resp)
	label := c.normalize(top.Label)
	if label == "" {
		err := fmt.Errorf("%w: %q", ErrUnknownLabel, top.Label)
		log.Warn("SER label rejected", "err", err)
		return outcome.Degraded(Unavailable, err)
	}
	return outcome.Ok(Emotion{Label: label, Confidence: clamp01(top.Score)})
}

func (c *Client) post(ctx context.Context, clip pcm.Clip) (*Response, error) {
	data, err := pcm.EncodeWAV(clip)
	if err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("ser %s: %s", resp.Status, string(body))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ser decode: %w", err)
	}
	return &out, nil
}

// best picks the maximum-score entry of the distribution, falling back to the
// summary fields when no distribution is sent.
func best(r *Response) Score {
	top := Score{Label: r.Emotion, Score: r.Confidence}
	if len(r.Raw) == 0 {
		return top
	}
	top = r.Raw[0]
	for _, s := range r.Raw[1:] {
		if s.Score > top.Score {
			top = s
		}
	}
	return top
}

var aliases = map[string]string{
	"angry":     "anger",
	"happiness": "happy",
	"joy":       "happy",
	"sadness":   "sad",
	"surprised": "surprise",
	"calm":      "neutral",
}

func (c *Client) normalize(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	if c.vocab[l] {
		return l
	}
	if a, ok := aliases[l]; ok && c.vocab[a] {
		return a
	}
	return ""
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
