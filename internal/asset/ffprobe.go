package asset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"timeliner/internal/logging"
	"timeliner/internal/media/ffprobe"
)

// FFprobeResolver shells out to ffprobe.
type FFprobeResolver struct {
	Binary  string
	Timeout time.Duration
	Logger  *slog.Logger

	inspect func(ctx context.Context, binary, target string) (ffprobe.Result, error)
}

// NewFFprobeResolver returns a resolver running binary with a per-probe timeout.
func NewFFprobeResolver(binary string, timeout time.Duration, logger *slog.Logger) *FFprobeResolver {
	return &FFprobeResolver{
		Binary:  binary,
		Timeout: timeout,
		Logger:  logging.NewComponentLogger(logger, "resolver"),
		inspect: ffprobe.Inspect,
	}
}

func (r *FFprobeResolver) Resolve(ctx context.Context, uri string) (Info, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	inspect := r.inspect
	if inspect == nil {
		inspect = ffprobe.Inspect
	}
	started := time.Now()
	result, err := inspect(ctx, r.Binary, uri)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %w", ErrUnresolved, uri, err)
	}
	info := Info{
		URI:      uri,
		Duration: result.Duration(),
		HasAudio: result.AudioStreamCount() > 0,
		HasVideo: result.VideoStreamCount() > 0,
	}
	if r.Logger != nil {
		r.Logger.Debug("ffprobe resolved asset",
			logging.String("uri", uri),
			logging.Duration("duration", info.Duration),
			logging.Bool("audio", info.HasAudio),
			logging.Bool("video", info.HasVideo),
			logging.Duration("elapsed", time.Since(started)),
		)
	}
	return info, nil
}
