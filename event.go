package notegate

import "fmt"

const (
	// Channels is the number of MIDI channels.
	Channels = 16

	// Notes is the number of MIDI note numbers per channel.
	Notes = 128
)

// Kind is the kind of an Event.
type Kind uint8

const (
	// Other is any event that does not take part in gating (control change,
	// aftertouch, pitchbend...). It is always passed through.
	Other Kind = iota

	// NoteOn starts a note. A NoteOn with velocity 0 is treated as NoteOff.
	NoteOn

	// NoteOff releases a note.
	NoteOff
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "NoteOn"
	case NoteOff:
		return "NoteOff"
	default:
		return "Other"
	}
}

// VoiceID identifies a host voice. NoVoice means the host did not set one.
type VoiceID int32

// NoVoice is the VoiceID of events that are not bound to a voice.
const NoVoice VoiceID = -1

// Event is a single note event as delivered by the host.
type Event struct {
	// Timing is the offset of the event inside the current processing block
	// (frames or ticks, whatever the host uses). It is never changed.
	Timing uint32
	Voice  VoiceID
	Kind   Kind

	Channel uint8 // 0-15
	Note    uint8 // 0-127

	// Velocity in the range [0,1]. A note-on with velocity 0 is a note-off.
	Velocity float32
}

// On returns a note-on event without timing and voice.
func On(ch, note uint8, velocity float32) Event {
	return Event{Voice: NoVoice, Kind: NoteOn, Channel: ch, Note: note, Velocity: velocity}
}

// Off returns a note-off event without timing and voice.
func Off(ch, note uint8) Event {
	return Event{Voice: NoVoice, Kind: NoteOff, Channel: ch, Note: note}
}

func (e Event) String() string {
	return fmt.Sprintf("%s channel %v note %v velocity %.3f timing %v voice %v", e.Kind, e.Channel, e.Note, e.Velocity, e.Timing, e.Voice)
}
