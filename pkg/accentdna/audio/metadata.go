package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// MediaInfo is what ffprobe reports about an input container.
type MediaInfo struct {
	Filename    string
	Format      string
	DurationSec float64
	HasVideo    bool
	HasAudio    bool
	SampleRate  int
	Channels    int
	Codec       string
}

type ffprobeOutput struct {
	Format struct {
		Filename string `json:"filename"`
		Duration string `json:"duration"`
		Format   string `json:"format_name"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

func (p *ffprobeOutput) firstStream(kind string) *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == kind {
			return &p.Streams[i]
		}
	}
	return nil
}

// parseProbe turns raw ffprobe JSON into a MediaInfo.
func parseProbe(path string, raw []byte) (*MediaInfo, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	duration, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	info := &MediaInfo{
		Filename:    filepath.Base(path),
		Format:      probe.Format.Format,
		DurationSec: duration,
		HasVideo:    probe.firstStream("video") != nil,
	}

	if s := probe.firstStream("audio"); s != nil {
		info.HasAudio = true
		info.SampleRate, _ = strconv.Atoi(s.SampleRate)
		info.Channels = s.Channels
		info.Codec = s.CodecName
	}
	return info, nil
}

// ProbeMedia runs ffprobe on path. A file ffprobe cannot open at all is
// reported as ErrUnsupportedFormat.
func ProbeMedia(ctx context.Context, ffprobe, path string) (*MediaInfo, error) {
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if _, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%w: ffprobe could not read %s", ErrUnsupportedFormat, filepath.Base(path))
		}
		return nil, fmt.Errorf("running ffprobe: %w", err)
	}

	return parseProbe(path, out)
}
