package audio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/himanishpuri/AccentDNA/pkg/utils"
)

// ErrDownloadFailed wraps any yt-dlp failure.
var ErrDownloadFailed = errors.New("audio download failed")

// IsRemoteURL reports whether s looks like an http(s) URL rather than a path.
func IsRemoteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DownloadAudio fetches the best audio stream of a video page into dir and
// returns the downloaded file. The caller owns the returned scratch file.
func DownloadAudio(ctx context.Context, pageURL, dir string) (*utils.Scratch, error) {
	if !IsRemoteURL(pageURL) {
		return nil, fmt.Errorf("%w: not an http(s) URL: %q", ErrDownloadFailed, pageURL)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 3*time.Minute)
		defer cancel()
	}

	if err := utils.MakeDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	stem := "download_" + uuid.NewString()
	outputTemplate := filepath.Join(dir, stem+".%(ext)s")

	res, err := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		Format("ba").
		Output(outputTemplate).
		Run(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		stderr := ""
		if res != nil {
			stderr = strings.TrimSpace(res.Stderr)
		}
		return nil, fmt.Errorf("%w: %v (%s)", ErrDownloadFailed, err, stderr)
	}

	matches, err := filepath.Glob(filepath.Join(dir, stem+".*"))
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("%w: yt-dlp finished but no file was written for %s", ErrDownloadFailed, pageURL)
	}
	return &utils.Scratch{Path: matches[0]}, nil
}
