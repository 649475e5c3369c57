package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/ytget/media-transcriber/internal/model"
)

// Whisper request fields
const (
	whisperFileField   = "file"
	whisperFormatField = "response_format"
	whisperFormat      = "verbose_json"
)

// DefaultWhisperRetryTime bounds the retry window for transcription calls
const DefaultWhisperRetryTime = 30 * time.Second

// WhisperClient transcribes audio through a whisper-compatible HTTP
// endpoint that accepts multipart uploads and returns verbose JSON with
// per-segment timestamps
type WhisperClient struct {
	endpoint     string
	httpClient   *http.Client
	maxRetryTime time.Duration
	log          *logrus.Entry
}

// whisperResponse is the verbose_json shape of whisper servers
type whisperResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// NewWhisperClient creates a client for the given endpoint
func NewWhisperClient(endpoint string, timeout time.Duration, log *logrus.Entry) *WhisperClient {
	return &WhisperClient{
		endpoint:     endpoint,
		httpClient:   &http.Client{Timeout: timeout},
		maxRetryTime: DefaultWhisperRetryTime,
		log:          log,
	}
}

// SetMaxRetryTime bounds the total retry window
func (c *WhisperClient) SetMaxRetryTime(d time.Duration) {
	c.maxRetryTime = d
}

// Transcribe uploads the audio file and maps the response segments,
// reporting progress per parsed segment. Client errors (4xx) are not
// retried; transport and server errors back off exponentially.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string, progress func(current, total int)) ([]model.Segment, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("transcription endpoint not configured")
	}

	var parsed whisperResponse
	op := func() error {
		body, contentType, err := c.buildRequestBody(audioPath)
		if err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.WithError(err).Warn("transcription request failed")
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("transcription endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("transcription endpoint returned %d", resp.StatusCode)
		}

		if err := json.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("malformed transcription response: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxRetryTime
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	segments := make([]model.Segment, 0, len(parsed.Segments))
	for i, seg := range parsed.Segments {
		segments = append(segments, model.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
		if progress != nil {
			progress(i+1, len(parsed.Segments))
		}
	}
	return segments, nil
}

func (c *WhisperClient) buildRequestBody(audioPath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	part, err := w.CreateFormFile(whisperFileField, filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read audio file: %w", err)
	}
	if err := w.WriteField(whisperFormatField, whisperFormat); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &b, w.FormDataContentType(), nil
}
