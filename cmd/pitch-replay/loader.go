package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/pitch.report/internal/pitch"
)

// maxFeedLine bounds a single detections line.
const maxFeedLine = 8 * 1024 * 1024

type detection struct {
	TrackID int       `json:"track_id"`
	Kind    string    `json:"kind"`
	BBox    []float64 `json:"bbox"`
	RawTeam string    `json:"raw_team"`
}

type feedRecord struct {
	FrameIndex *int64      `json:"frame_index"`
	Image      string      `json:"image"`
	Tracks     []detection `json:"tracks"`
}

// feedFrame is one decoded line of the detections feed.
type feedFrame struct {
	Frame pitch.Frame
	// Image is the frame image path relative to the feed, if any.
	Image string
	// Raw holds upstream per-frame labels for player tracks.
	Raw map[int]pitch.TeamLabel
}

// feedReader decodes a JSON lines detections feed, one frame per line.
type feedReader struct {
	sc   *bufio.Scanner
	line int
}

func newFeedReader(r io.Reader) *feedReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFeedLine)
	return &feedReader{sc: sc}
}

// Next returns the next frame, or io.EOF when the feed is exhausted.
// Blank lines are skipped. Decoding errors carry the line number. A
// bounding box without exactly four values breaks the frame contract and
// is reported as a *pitch.PreconditionError; other decoding errors are
// feed format errors.
func (fr *feedReader) Next() (feedFrame, error) {
	for fr.sc.Scan() {
		fr.line++
		text := strings.TrimSpace(fr.sc.Text())
		if text == "" {
			continue
		}
		ff, err := decodeFeedLine([]byte(text))
		if err != nil {
			return feedFrame{}, fmt.Errorf("line %d: %w", fr.line, err)
		}
		return ff, nil
	}
	if err := fr.sc.Err(); err != nil {
		return feedFrame{}, fmt.Errorf("failed to read feed: %w", err)
	}
	return feedFrame{}, io.EOF
}

func decodeFeedLine(data []byte) (feedFrame, error) {
	var rec feedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return feedFrame{}, fmt.Errorf("invalid detections json: %w", err)
	}
	if rec.FrameIndex == nil {
		return feedFrame{}, fmt.Errorf("missing frame_index")
	}

	ff := feedFrame{
		Frame: pitch.Frame{Index: *rec.FrameIndex, Tracks: make([]pitch.Track, 0, len(rec.Tracks))},
		Image: rec.Image,
		Raw:   make(map[int]pitch.TeamLabel),
	}
	for i, d := range rec.Tracks {
		kind, err := pitch.ParseKind(d.Kind)
		if err != nil {
			return feedFrame{}, fmt.Errorf("tracks[%d]: %w", i, err)
		}
		if len(d.BBox) != 4 {
			return feedFrame{}, &pitch.PreconditionError{
				FrameIndex: *rec.FrameIndex,
				TrackID:    d.TrackID,
				Reason:     fmt.Sprintf("tracks[%d]: malformed bounding box: %d values, want 4", i, len(d.BBox)),
			}
		}
		box := pitch.BoundingBox{X1: d.BBox[0], Y1: d.BBox[1], X2: d.BBox[2], Y2: d.BBox[3]}
		ff.Frame.Tracks = append(ff.Frame.Tracks, pitch.Track{
			TrackID:  d.TrackID,
			Kind:     kind,
			Box:      box,
			Position: box.Center(),
		})
		if kind != pitch.KindPlayer {
			continue
		}
		label, err := pitch.ParseTeamLabel(d.RawTeam)
		if err != nil {
			return feedFrame{}, fmt.Errorf("tracks[%d]: %w", i, err)
		}
		ff.Raw[d.TrackID] = label
	}
	return ff, nil
}
