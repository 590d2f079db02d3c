package ebmlprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/ebml-go/ebml"
	"github.com/jeffallen/seekinghttp"
)

// ErrUnsupported is returned for URIs whose container or scheme this probe does not read.
var ErrUnsupported = errors.New("ebmlprobe: unsupported uri")

// Matroska element IDs used by the probe.
const (
	idEBMLHeader = 0x1A45DFA3
	idSegment    = 0x18538067
	idInfo       = 0x1549A966
	idTracks     = 0x1654AE6B
	idCluster    = 0x1F43B675
)

// Matroska TrackType values.
const (
	trackTypeVideo = 1
	trackTypeAudio = 2
)

// defaultTimecodeScale is one millisecond, the value Matroska assumes when
// the Info element omits TimecodeScale.
const defaultTimecodeScale = 1_000_000

type segmentInfo struct {
	TimecodeScale uint64  `ebml:"2AD7B1"`
	Duration      float64 `ebml:"4489"`
}

type trackEntry struct {
	TrackNumber uint64 `ebml:"D7"`
	TrackType   uint64 `ebml:"83"`
	CodecID     string `ebml:"86"`
}

// Result summarizes a Matroska header.
type Result struct {
	Duration time.Duration
	HasVideo bool
	HasAudio bool
	Codecs   []string
}

// Prober opens local and remote WebM/Matroska assets.
type Prober struct {
	Client *http.Client
}

// Supports reports whether uri names a container and scheme the probe can read.
func Supports(uri string) bool {
	parsed, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return false
	}
	switch parsed.Scheme {
	case "", "file", "http", "https":
	default:
		return false
	}
	switch strings.ToLower(path.Ext(parsed.Path)) {
	case ".webm", ".mkv", ".mka", ".mk3d":
		return true
	}
	return false
}

// Probe reads the header of uri. The context bounds remote reads only.
func (p Prober) Probe(ctx context.Context, uri string) (Result, error) {
	if !Supports(uri) {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupported, uri)
	}
	parsed, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return Result{}, fmt.Errorf("ebmlprobe: parse %q: %w", uri, err)
	}

	switch parsed.Scheme {
	case "http", "https":
		remote := seekinghttp.New(parsed.String())
		client := p.Client
		if client == nil {
			client = &http.Client{}
		}
		if deadline, ok := ctx.Deadline(); ok {
			bounded := *client
			bounded.Timeout = time.Until(deadline)
			client = &bounded
		}
		remote.Client = client
		return Decode(remote)
	default:
		file, err := os.Open(parsed.Path)
		if err != nil {
			return Result{}, fmt.Errorf("ebmlprobe: open: %w", err)
		}
		defer file.Close()
		return Decode(file)
	}
}

// Decode walks the EBML header, the Segment Info, and the Tracks of rs.
func Decode(rs io.ReadSeeker) (Result, error) {
	root, err := ebml.RootElement(rs)
	if err != nil {
		return Result{}, fmt.Errorf("ebmlprobe: root element: %w", err)
	}
	header, err := root.Next()
	if err != nil {
		return Result{}, fmt.Errorf("ebmlprobe: read header: %w", err)
	}
	if header.Id != idEBMLHeader {
		return Result{}, fmt.Errorf("ebmlprobe: not an ebml stream (first element %#x)", header.Id)
	}
	if _, err := root.Seek(header.Size(), io.SeekCurrent); err != nil {
		return Result{}, fmt.Errorf("ebmlprobe: skip header: %w", err)
	}
	segment, err := root.Next()
	if err != nil {
		return Result{}, fmt.Errorf("ebmlprobe: read segment: %w", err)
	}
	if segment.Id != idSegment {
		return Result{}, fmt.Errorf("ebmlprobe: expected segment, got %#x", segment.Id)
	}

	var (
		info      segmentInfo
		haveInfo  bool
		entries   []trackEntry
		haveTrack bool
	)
	for !(haveInfo && haveTrack) {
		el, err := segment.Next()
		if err != nil {
			break
		}
		start, err := segment.Seek(0, io.SeekCurrent)
		if err != nil {
			return Result{}, fmt.Errorf("ebmlprobe: position: %w", err)
		}
		switch el.Id {
		case idInfo:
			if err := el.Unmarshal(&info); err != nil {
				return Result{}, fmt.Errorf("ebmlprobe: segment info: %w", err)
			}
			haveInfo = true
		case idTracks:
			for child, err := el.Next(); err == nil; child, err = el.Next() {
				var entry trackEntry
				if err := child.Unmarshal(&entry); err != nil {
					return Result{}, fmt.Errorf("ebmlprobe: track entry: %w", err)
				}
				entries = append(entries, entry)
			}
			haveTrack = true
		case idCluster:
			// Media data starts here; headers come first in every muxer we target.
			return summarize(info, entries), nil
		}
		if _, err := segment.Seek(start+el.Size(), io.SeekStart); err != nil {
			break
		}
	}
	if !haveInfo && !haveTrack {
		return Result{}, errors.New("ebmlprobe: segment carries neither info nor tracks")
	}
	return summarize(info, entries), nil
}

func summarize(info segmentInfo, entries []trackEntry) Result {
	scale := info.TimecodeScale
	if scale == 0 {
		scale = defaultTimecodeScale
	}
	var result Result
	if info.Duration > 0 && !math.IsInf(info.Duration, 0) {
		result.Duration = time.Duration(math.Round(info.Duration * float64(scale)))
	}
	for _, entry := range entries {
		switch entry.TrackType {
		case trackTypeVideo:
			result.HasVideo = true
		case trackTypeAudio:
			result.HasAudio = true
		}
		if entry.CodecID != "" {
			result.Codecs = append(result.Codecs, entry.CodecID)
		}
	}
	return result
}
