// Package diagnostics renders liveness state as machine-readable JSON, for
// tooling (a web UI, an offline analysis script) that wants structured data
// rather than the stable textual dump format the core itself defines. The
// core's own String() methods remain the contractual debug form; this is
// strictly an ambient convenience built on top of it.
package diagnostics

import (
	"github.com/segmentio/encoding/json"

	"github.com/tangzhangming/liverange/internal/liveinterval"
	"github.com/tangzhangming/liverange/internal/liverange"
)

// SegmentSnapshot is one [start,end) segment, with positions rendered via
// SlotIndex's own String() so ordering remains eyeballable.
type SegmentSnapshot struct {
	Start string `json:"start"`
	End   string `json:"end"`
	VN    int    `json:"vn"`
}

// ValueNumberSnapshot is one entry of a live range's value-number table.
type ValueNumberSnapshot struct {
	ID     int    `json:"id"`
	Def    string `json:"def"`
	Unused bool   `json:"unused,omitempty"`
	PhiDef bool   `json:"phi_def,omitempty"`
}

// LiveRangeSnapshot is the JSON shape of one LiveRange.
type LiveRangeSnapshot struct {
	Segments []SegmentSnapshot     `json:"segments"`
	Values   []ValueNumberSnapshot `json:"values"`
}

// SubRangeSnapshot adds the lane mask identifying which lanes a subrange
// describes.
type SubRangeSnapshot struct {
	LaneMask uint32 `json:"lane_mask"`
	LiveRangeSnapshot
}

// LiveIntervalSnapshot is the JSON shape of a whole LiveInterval: its main
// range plus any subranges.
type LiveIntervalSnapshot struct {
	Reg uint32 `json:"reg"`
	LiveRangeSnapshot
	SubRanges []SubRangeSnapshot `json:"subranges,omitempty"`
}

func snapshotRange(lr *liverange.LiveRange) LiveRangeSnapshot {
	segs := lr.Segments()
	out := LiveRangeSnapshot{Segments: make([]SegmentSnapshot, len(segs))}
	for i, s := range segs {
		out.Segments[i] = SegmentSnapshot{Start: s.Start.String(), End: s.End.String(), VN: s.VN.ID()}
	}
	for i := 0; i < lr.NumValNums(); i++ {
		vn := lr.ValNumInfo(i)
		out.Values = append(out.Values, ValueNumberSnapshot{
			ID:     vn.ID(),
			Def:    vn.Def.String(),
			Unused: vn.IsUnused(),
			PhiDef: vn.IsPHIDef(),
		})
	}
	return out
}

// Snapshot renders li's main range and every subrange as a JSON document.
func Snapshot(li *liveinterval.LiveInterval) ([]byte, error) {
	snap := LiveIntervalSnapshot{
		Reg:               uint32(li.Reg),
		LiveRangeSnapshot: snapshotRange(&li.LiveRange),
	}
	for sr := li.SubRanges(); sr != nil; sr = sr.Next() {
		snap.SubRanges = append(snap.SubRanges, SubRangeSnapshot{
			LaneMask:          uint32(sr.LaneMask),
			LiveRangeSnapshot: snapshotRange(&sr.LiveRange),
		})
	}
	return json.Marshal(snap)
}
