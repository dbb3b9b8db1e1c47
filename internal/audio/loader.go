package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/Alexander-D-Karpov/redditmusic/internal/config"
	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
)

// Loader downloads audio files fully into memory so the decoder can seek.
type Loader struct {
	client    *retryablehttp.Client
	userAgent string
	maxBytes  int64
	log       *logrus.Entry
}

func NewLoader(cfg *config.Config) *Loader {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.API.Retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = time.Duration(cfg.API.Timeout) * time.Second

	maxMB := cfg.Player.AudioMaxDownloadMB
	if maxMB <= 0 {
		maxMB = 64
	}

	log := logging.For("AUDIO")
	client.Logger = logging.Leveled(log)

	return &Loader{
		client:    client,
		userAgent: cfg.API.UserAgent,
		maxBytes:  int64(maxMB) << 20,
		log:       log,
	}
}

// Fetch downloads url and returns its body as a seekable stream.
func (l *Loader) Fetch(ctx context.Context, url string) (io.ReadSeekCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	req.Header.Set("Accept", "audio/mpeg, audio/*")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch audio: bad status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("audio exceeds %d bytes", l.maxBytes)
	}

	l.log.WithFields(logrus.Fields{"url": url, "bytes": len(data)}).Debug("Downloaded audio")
	return memoryFile{bytes.NewReader(data)}, nil
}

type memoryFile struct {
	*bytes.Reader
}

func (memoryFile) Close() error { return nil }
