// Package downloader fetches video files with yt-dlp as a subprocess.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ytsm/subscription-manager-go/internal/db/models"
	"github.com/ytsm/subscription-manager-go/internal/service"
)

const (
	defaultYtdlpPath    = "yt-dlp"
	defaultYtdlpTimeout = 2 * time.Hour
)

// Downloader fetches the media files of a single video and returns the path
// of the main output file.
type Downloader interface {
	Download(ctx context.Context, video *models.Video, sub *models.Subscription, channel *models.Channel, policy service.Policy) (string, error)
}

// YtdlpDownloader implements Downloader using yt-dlp as a subprocess.
type YtdlpDownloader struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string

	// Timeout is the maximum time to wait for one download. Defaults to
	// 2 hours.
	Timeout time.Duration

	// ExtraArgs are additional arguments to pass to yt-dlp.
	ExtraArgs []string
}

// NewYtdlpDownloader creates a new yt-dlp based downloader.
func NewYtdlpDownloader() *YtdlpDownloader {
	return &YtdlpDownloader{
		Path:    defaultYtdlpPath,
		Timeout: defaultYtdlpTimeout,
	}
}

// Download runs yt-dlp for a single video and returns the path of the
// resulting file. The output location is derived from the policy's download
// path and file pattern.
func (d *YtdlpDownloader) Download(ctx context.Context, video *models.Video, sub *models.Subscription, channel *models.Channel, policy service.Policy) (string, error) {
	if err := d.checkInstalled(ctx); err != nil {
		return "", err
	}

	output := filepath.Join(policy.DownloadPath, expandPattern(policy.FilePattern, video, sub, channel))
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	args := []string{
		"--no-warnings",
		"--no-progress",
		"-f", policy.DownloadFormat,
		"-o", output + ".%(ext)s",
		"--print", "after_move:filepath",
	}
	args = append(args, subtitleArgs(policy)...)
	args = append(args, d.ExtraArgs...)
	args = append(args, "https://www.youtube.com/watch?v="+video.VideoID)

	timeout := d.Timeout
	if timeout == 0 {
		timeout = defaultYtdlpTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, d.path(), args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: yt-dlp timed out after %s", service.ErrTransientNetwork, timeout)
		}

		errMsg := stderr.String()
		switch {
		case strings.Contains(errMsg, "not available") || strings.Contains(errMsg, "Private video"):
			return "", fmt.Errorf("%w: %s", service.ErrNotFound, strings.TrimSpace(errMsg))
		case strings.Contains(errMsg, "429") || strings.Contains(errMsg, "rate"):
			return "", fmt.Errorf("%w: %s", service.ErrRateLimited, strings.TrimSpace(errMsg))
		}

		return "", fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(errMsg))
	}

	// yt-dlp prints the final file path after any merge/move steps.
	path := strings.TrimSpace(stdout.String())
	if path == "" {
		return "", fmt.Errorf("yt-dlp produced no output file for video %s", video.VideoID)
	}
	if idx := strings.LastIndexByte(path, '\n'); idx >= 0 {
		path = strings.TrimSpace(path[idx+1:])
	}

	return path, nil
}

// checkInstalled verifies that yt-dlp is available.
func (d *YtdlpDownloader) checkInstalled(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, d.path(), "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp is not installed: %w", err)
	}
	return nil
}

func (d *YtdlpDownloader) path() string {
	if d.Path != "" {
		return d.Path
	}
	return defaultYtdlpPath
}

func subtitleArgs(policy service.Policy) []string {
	if !policy.Subtitles {
		return nil
	}

	args := []string{"--write-subs"}
	if policy.AutogenSubtitles {
		args = append(args, "--write-auto-subs")
	}
	if policy.SubtitlesAll {
		args = append(args, "--sub-langs", "all")
	} else if policy.SubtitlesLangs != "" {
		args = append(args, "--sub-langs", policy.SubtitlesLangs)
	}
	if policy.SubtitlesFormat != "" {
		args = append(args, "--sub-format", policy.SubtitlesFormat)
	}

	return args
}

// expandPattern substitutes the file pattern variables with per-video
// values, sanitized for use in a path.
func expandPattern(pattern string, video *models.Video, sub *models.Subscription, channel *models.Channel) string {
	channelName := channel.Name
	if channelName == "" {
		channelName = video.UploaderName
	}

	replacer := strings.NewReplacer(
		"${channel}", sanitize(channelName),
		"${channel_id}", sanitize(channel.ChannelID),
		"${playlist}", sanitize(sub.Name),
		"${playlist_id}", sanitize(sub.PlaylistID),
		"${playlist_index}", fmt.Sprintf("%03d", video.PlaylistIndex),
		"${title}", sanitize(video.Name),
		"${id}", sanitize(video.VideoID),
		"${year}", strconv.Itoa(video.PublishDate.Year()),
	)
	return replacer.Replace(pattern)
}

// sanitize strips path separators and characters that are invalid in file
// names on common filesystems.
func sanitize(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(s)
}
