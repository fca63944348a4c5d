// Package export writes per-frame tactical snapshots as JSON lines for
// downstream renderers, and reads them back.
//
// Each line is "<frame_index> <json>", where the JSON object is the
// protojson encoding of a google.protobuf.Struct.
package export

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/pitch.report/internal/pitch"
	"github.com/banshee-data/pitch.report/internal/pitch/formation"
	"github.com/banshee-data/pitch.report/internal/pitch/match"
)

// maxLineBytes bounds a single snapshot line when reading.
const maxLineBytes = 8 * 1024 * 1024

// Record is one decoded snapshot line.
type Record struct {
	FrameIndex int64
	Data       *structpb.Struct
}

// Field returns the top-level value for key, or nil.
func (r Record) Field(key string) *structpb.Value {
	if r.Data == nil {
		return nil
	}
	return r.Data.GetFields()[key]
}

// SnapshotWriter streams snapshots to w. Call Flush when done.
type SnapshotWriter struct {
	w       *bufio.Writer
	marshal protojson.MarshalOptions
	written int
}

// NewSnapshotWriter wraps w in a buffered snapshot writer.
func NewSnapshotWriter(w io.Writer) *SnapshotWriter {
	return &SnapshotWriter{w: bufio.NewWriter(w)}
}

// Write encodes one snapshot as a line.
func (sw *SnapshotWriter) Write(s *match.Snapshot) error {
	st, err := Encode(s)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", s.FrameIndex, err)
	}
	b, err := sw.marshal.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal frame %d: %w", s.FrameIndex, err)
	}
	if _, err := fmt.Fprintf(sw.w, "%d %s\n", s.FrameIndex, b); err != nil {
		return err
	}
	sw.written++
	return nil
}

// Written returns the number of snapshots written so far.
func (sw *SnapshotWriter) Written() int { return sw.written }

// Flush writes any buffered data to the underlying writer.
func (sw *SnapshotWriter) Flush() error { return sw.w.Flush() }

// ReadSnapshots parses every line written by a SnapshotWriter. Blank
// lines are skipped.
func ReadSnapshots(r io.Reader) ([]Record, error) {
	s := bufio.NewScanner(r)
	buf := make([]byte, 0, 1024*1024)
	s.Buffer(buf, maxLineBytes)

	var out []Record
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}

		i := strings.IndexByte(line, ' ')
		if i <= 0 || i >= len(line)-1 {
			return nil, fmt.Errorf("line %d: missing frame index prefix", lineNo)
		}
		idx, err := strconv.ParseInt(line[:i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid frame index %q: %w", lineNo, line[:i], err)
		}
		st := &structpb.Struct{}
		if err := protojson.Unmarshal([]byte(line[i+1:]), st); err != nil {
			return nil, fmt.Errorf("line %d: invalid snapshot json: %w", lineNo, err)
		}
		out = append(out, Record{FrameIndex: idx, Data: st})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Encode converts a snapshot to a Struct.
func Encode(s *match.Snapshot) (*structpb.Struct, error) {
	players := make([]interface{}, len(s.Players))
	for i, p := range s.Players {
		players[i] = map[string]interface{}{
			"track_id": p.TrackID,
			"team":     p.Team.String(),
			"position": point(p.Position),
		}
	}

	formations := make([]interface{}, len(s.Formations))
	for i, f := range s.Formations {
		formations[i] = encodeFormation(f)
	}

	trail := make([]interface{}, len(s.Trail))
	for i, tp := range s.Trail {
		trail[i] = map[string]interface{}{
			"position":    point(tp.Position),
			"colour":      hexColour(tp.Colour),
			"frame_index": tp.FrameIndex,
		}
	}

	passes := make([]interface{}, len(s.Passes))
	for i, p := range s.Passes {
		passes[i] = map[string]interface{}{
			"from":        p.From.String(),
			"to":          p.To.String(),
			"frame_index": p.FrameIndex,
			"player_id":   p.PlayerID,
		}
	}

	teamFrames := make(map[string]interface{}, len(pitch.Teams))
	for _, team := range pitch.Teams {
		teamFrames[team.String()] = s.TeamFrames[team]
	}

	poss := map[string]interface{}{
		"phase":             s.Possession.Phase.String(),
		"team":              s.Possession.Team.String(),
		"player_id":         s.Possession.PlayerID,
		"candidate_team":    s.Possession.CandidateTeam.String(),
		"candidate_streak":  s.Possession.CandidateStreak,
		"closest_player_id": s.Possession.ClosestPlayerID,
		"switched":          s.Possession.Switched,
	}
	if !math.IsInf(s.Possession.Distance, 0) && !math.IsNaN(s.Possession.Distance) {
		poss["distance"] = s.Possession.Distance
	}

	var ball interface{}
	if s.Ball != nil {
		ball = map[string]interface{}{
			"track_id": s.Ball.TrackID,
			"position": point(s.Ball.Position),
		}
	}

	return structpb.NewStruct(map[string]interface{}{
		"frame_index":  s.FrameIndex,
		"players":      players,
		"ball":         ball,
		"formations":   formations,
		"trail":        trail,
		"possession":   poss,
		"team_frames":  teamFrames,
		"total_frames": s.TotalFrames,
		"passes":       passes,
	})
}

func encodeFormation(f formation.Snapshot) map[string]interface{} {
	ids := make([]interface{}, len(f.PlayerIDs))
	for i, id := range f.PlayerIDs {
		ids[i] = id
	}
	edges := make([]interface{}, len(f.Edges))
	for i, e := range f.Edges {
		edges[i] = []interface{}{e.A, e.B}
	}
	var polygon interface{}
	if f.Polygon != nil {
		pts := make([]interface{}, len(f.Polygon))
		for i, p := range f.Polygon {
			pts[i] = point(p)
		}
		polygon = pts
	}
	var centroid interface{}
	if f.HasCentroid {
		centroid = point(f.Centroid)
	}
	zones := make(map[string]interface{}, len(f.Zones))
	for z, n := range f.Zones {
		zones[z.String()] = n
	}
	return map[string]interface{}{
		"team":        f.Team.String(),
		"player_ids":  ids,
		"edges":       edges,
		"polygon":     polygon,
		"area":        f.Area,
		"centroid":    centroid,
		"compactness": f.Compactness,
		"zones":       zones,
		"line_up":     f.LineUp,
	}
}

func point(p pitch.Point) []interface{} {
	return []interface{}{p.X, p.Y}
}

func hexColour(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
