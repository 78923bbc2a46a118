package notegate

import (
	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/midi/midimessage/channel"
)

// EventFromMessage converts a MIDI wire message to an Event.
// Messages that are neither note-on nor note-off return an Event of kind Other.
func EventFromMessage(msg midi.Message) Event {
	switch v := msg.(type) {
	case channel.NoteOn:
		return Event{Voice: NoVoice, Kind: NoteOn, Channel: v.Channel(), Note: v.Key(), Velocity: velocity(v.Velocity())}
	case channel.NoteOff:
		return Event{Voice: NoVoice, Kind: NoteOff, Channel: v.Channel(), Note: v.Key()}
	case channel.NoteOffVelocity:
		return Event{Voice: NoVoice, Kind: NoteOff, Channel: v.Channel(), Note: v.Key(), Velocity: velocity(v.Velocity())}
	default:
		return Event{Voice: NoVoice, Kind: Other}
	}
}

func velocity(v uint8) float32 {
	return float32(v&0x7F) / 127
}

// HandleMessage gates a MIDI wire message. The returned message is msg itself,
// except for a note-on with velocity 0 which is returned as a note-off.
// Any message that is not a note message is returned unchanged.
func (g *Gate) HandleMessage(msg midi.Message) (midi.Message, bool) {
	ev := EventFromMessage(msg)
	if ev.Kind == Other {
		return msg, true
	}

	fwd, ok := g.Handle(ev)
	if !ok {
		return nil, false
	}

	if ev.Kind == NoteOn && fwd.Kind == NoteOff {
		return channel.Channel(ev.Channel).NoteOff(ev.Note), true
	}

	return msg, true
}
