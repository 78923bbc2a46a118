// Package smffilter applies a notegate.Gate to Standard MIDI Files.
//
// All tracks share one gate, since they usually end up on the same synthesizer.
// The events of all tracks are merged by absolute tick (events on the same tick
// keep track order) and every note-on for a note that is still sounding is
// removed. The delta of a removed event is added to the next event of its track,
// so the absolute time of every remaining event stays the same.
package smffilter

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
	"gitlab.com/gomidi/notegate"
)

type ref struct {
	track int
	index int
	tick  int64
}

// event converts msg to a note event. ok is false for everything that is not a note message.
func event(msg smf.Message) (ev notegate.Event, ok bool) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		ev = notegate.On(ch, key, float32(vel)/127)
	case msg.GetNoteOff(&ch, &key, &vel):
		ev = notegate.Off(ch, key)
	default:
		return ev, false
	}
	return ev, true
}

// Filter removes the retriggering note-ons from mid. The tracks of mid are replaced.
func Filter(mid *smf.SMF) Report {
	var rep Report
	var refs []ref
	drop := make([][]bool, len(mid.Tracks))

	for ti, tr := range mid.Tracks {
		drop[ti] = make([]bool, len(tr))
		var tick int64
		for ei, ev := range tr {
			tick += int64(ev.Delta)
			refs = append(refs, ref{track: ti, index: ei, tick: tick})
		}
	}

	sort.SliceStable(refs, func(a, b int) bool {
		return refs[a].tick < refs[b].tick
	})

	g := notegate.NewGate()

	for _, r := range refs {
		msg := mid.Tracks[r.track][r.index].Message
		ev, isNote := event(msg)
		if !isNote {
			rep.Passed++
			continue
		}

		if _, ok := g.Handle(ev); ok {
			rep.Forwarded++
			continue
		}

		drop[r.track][r.index] = true
		rep.Dropped++
		rep.DroppedNotes = append(rep.DroppedNotes, DroppedNote{
			Track:    r.track,
			Tick:     r.tick,
			Channel:  ev.Channel,
			Note:     ev.Note,
			Velocity: uint8(ev.Velocity*127 + 0.5),
		})
	}

	for ti, tr := range mid.Tracks {
		kept := make(smf.Track, 0, len(tr))
		var carry uint32
		for ei, ev := range tr {
			if drop[ti][ei] {
				carry += ev.Delta
				continue
			}
			ev.Delta += carry
			carry = 0
			kept = append(kept, ev)
		}
		mid.Tracks[ti] = kept
	}

	return rep
}

// File reads the SMF input, filters it and writes the result to output.
func File(input, output string) (Report, error) {
	mid, err := smf.ReadFile(input)
	if err != nil {
		return Report{}, fmt.Errorf("could not read %v: %w", input, err)
	}

	rep := Filter(mid)
	rep.Input = input
	rep.Output = output

	err = mid.WriteFile(output)
	if err != nil {
		return rep, fmt.Errorf("could not write %v: %w", output, err)
	}

	return rep, nil
}
