package media

import (
	"context"
	"fmt"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"
)

// Download settings
const (
	VideoFormat       = "bestvideo+bestaudio/best"
	MergeOutputFormat = "mp4"
	OutputTemplate    = "/%(title)s.%(ext)s"

	ProgressInterval = 500 * time.Millisecond
	DownloadRetries  = 1
	RetryDelay       = 2 * time.Second
)

// YtdlpDownloader fetches videos with yt-dlp, merging the best video and
// audio streams into an mp4 in the destination directory
type YtdlpDownloader struct {
	log *logrus.Entry
}

// NewYtdlpDownloader creates a downloader
func NewYtdlpDownloader(log *logrus.Entry) *YtdlpDownloader {
	return &YtdlpDownloader{log: log}
}

// Download fetches url into destDir and returns the merged video path and
// the remote title
func (d *YtdlpDownloader) Download(ctx context.Context, url, destDir string) (string, string, error) {
	var title string

	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		Format(VideoFormat).
		MergeOutputFormat(MergeOutputFormat).
		Output(destDir + OutputTemplate)

	dl.ProgressFunc(ProgressInterval, func(update ytdlp.ProgressUpdate) {
		if update.Info != nil && update.Info.Title != nil && *update.Info.Title != "" {
			title = *update.Info.Title
		}
	})

	result, err := d.runWithRetry(ctx, dl, url)
	if err != nil {
		return "", "", err
	}

	info, err := result.GetExtractedInfo()
	if err != nil || len(info) == 0 {
		return "", "", fmt.Errorf("no extracted info for %s: %v", url, err)
	}
	if info[0].Title != nil && *info[0].Title != "" {
		title = *info[0].Title
	}
	if info[0].Filename == nil || *info[0].Filename == "" {
		return "", "", fmt.Errorf("yt-dlp reported no output file for %s", url)
	}

	return *info[0].Filename, title, nil
}

// runWithRetry retries the download once after a short delay, matching the
// transient-failure profile of remote video hosts
func (d *YtdlpDownloader) runWithRetry(ctx context.Context, dl *ytdlp.Command, url string) (*ytdlp.Result, error) {
	var lastErr error

	for attempt := 0; attempt <= DownloadRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			d.log.WithFields(logrus.Fields{"url": url, "attempt": attempt + 1}).Info("retrying download")
		}

		result, err := dl.Run(ctx, url)
		if err == nil {
			return result, nil
		}
		lastErr = err
		d.log.WithFields(logrus.Fields{"url": url, "attempt": attempt + 1}).WithError(err).Warn("download attempt failed")

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}
