package audio

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// ExtractAudioTrack demultiplexes the first audio stream of inputPath into a
// 16-bit PCM WAV at outputPath. Sample rate and channel layout are left as
// they are; Canonicalize handles those in-process.
func ExtractAudioTrack(ctx context.Context, ffmpeg, inputPath, outputPath string) error {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		ffmpeg,
		"-y",
		"-v", "error",
		"-i", inputPath,
		"-vn",
		"-map", "0:a:0",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outputPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}
	return nil
}
