package asset

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"timeliner/internal/media/ebmlprobe"
)

// EBMLResolver reads WebM/Matroska headers in-process. Other containers
// return an error wrapping ebmlprobe.ErrUnsupported so a Chain moves on.
type EBMLResolver struct {
	prober ebmlprobe.Prober
}

// NewEBMLResolver bounds remote header reads by timeout.
func NewEBMLResolver(timeout time.Duration) *EBMLResolver {
	return &EBMLResolver{prober: ebmlprobe.Prober{Client: &http.Client{Timeout: timeout}}}
}

func (r *EBMLResolver) Resolve(ctx context.Context, uri string) (Info, error) {
	result, err := r.prober.Probe(ctx, uri)
	if err != nil {
		return Info{}, fmt.Errorf("ebml resolve %s: %w", uri, err)
	}
	return Info{
		URI:      uri,
		Duration: result.Duration,
		HasAudio: result.HasAudio,
		HasVideo: result.HasVideo,
	}, nil
}
