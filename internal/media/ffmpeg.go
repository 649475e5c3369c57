package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ytget/media-transcriber/internal/store"
)

// FFmpeg constants for audio extraction
const (
	FFmpegCommand = "ffmpeg"

	AudioCodec   = "libmp3lame"
	AudioBitrate = "192k"

	OutputExtensionMP3 = ".mp3"

	// stderrTailBytes bounds how much ffmpeg output ends up in an error
	stderrTailBytes = 512
)

// FFmpegExtractor produces an mp3 from a downloaded video by shelling out
// to ffmpeg
type FFmpegExtractor struct {
	log *logrus.Entry
}

// NewFFmpegExtractor creates an extractor
func NewFFmpegExtractor(log *logrus.Entry) *FFmpegExtractor {
	return &FFmpegExtractor{log: log}
}

// ExtractAudio writes <sanitized title>.mp3 into destDir and returns its path
func (e *FFmpegExtractor) ExtractAudio(ctx context.Context, url, videoPath, destDir, title string) (string, error) {
	outputPath := filepath.Join(destDir, store.Sanitize(title)+OutputExtensionMP3)

	cmd := exec.CommandContext(ctx, FFmpegCommand,
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", AudioCodec,
		"-b:a", AudioBitrate,
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.log.WithFields(logrus.Fields{"video": filepath.Base(videoPath), "audio": filepath.Base(outputPath)}).
		Debug("extracting audio")

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(stderr.String()))
	}
	return outputPath, nil
}

func stderrTail(out string) string {
	out = strings.TrimSpace(out)
	if len(out) > stderrTailBytes {
		out = out[len(out)-stderrTailBytes:]
	}
	return out
}
