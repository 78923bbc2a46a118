package notegate

/*
A Gate blocks note-ons for keys that are still sounding.

Every (channel, note) pair is either idle or sounding:

	idle     --note-on-->          sounding   (forwarded)
	sounding --note-on-->          sounding   (dropped)
	sounding --note-off/note-on 0-> idle      (forwarded)
	idle     --note-off-->         idle       (forwarded)

Reset puts every pair back to idle. Nothing else is tracked, so a Gate is a
fixed size value that never allocates and never locks. It must only be used
from one goroutine at a time, normally the host's processing callback.
*/
type Gate struct {
	active [Channels * Notes]bool
}

// NewGate returns a Gate with every pair idle. The zero value of Gate is also ready to use.
func NewGate() *Gate {
	return &Gate{}
}

func index(ch, note uint8) int {
	return int(ch&0x0F)*Notes + int(note&0x7F)
}

// Reset sets every pair to idle.
func (g *Gate) Reset() {
	g.active = [Channels * Notes]bool{}
}

// Handle decides about a single event. It returns the event to forward and true,
// or false if the event must be dropped.
// A note-on with velocity 0 is forwarded as note-off, any other forwarded event is unchanged.
func (g *Gate) Handle(ev Event) (Event, bool) {
	switch ev.Kind {
	case NoteOn:
		i := index(ev.Channel, ev.Note)
		if !(ev.Velocity > 0) {
			g.active[i] = false
			ev.Kind = NoteOff
			return ev, true
		}
		if g.active[i] {
			return Event{}, false
		}
		g.active[i] = true
		return ev, true
	case NoteOff:
		g.active[index(ev.Channel, ev.Note)] = false
		return ev, true
	default:
		return ev, true
	}
}

// Process runs Handle for each event of in, in order, and appends the forwarded
// events to out. It does not allocate as long as out has enough capacity.
func (g *Gate) Process(in []Event, out []Event) []Event {
	for _, ev := range in {
		if fwd, ok := g.Handle(ev); ok {
			out = append(out, fwd)
		}
	}
	return out
}

// Sounding reports whether the given pair has an outstanding note-on.
func (g *Gate) Sounding(ch, note uint8) bool {
	return g.active[index(ch, note)]
}

// Len returns the number of sounding pairs.
func (g *Gate) Len() (n int) {
	for _, on := range g.active {
		if on {
			n++
		}
	}
	return
}

// EachSounding calls fn for every sounding pair, ordered by channel and note.
func (g *Gate) EachSounding(fn func(ch, note uint8)) {
	for i, on := range g.active {
		if on {
			fn(uint8(i/Notes), uint8(i%Notes))
		}
	}
}
