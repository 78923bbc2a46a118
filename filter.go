package notegate

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/midi/midimessage/channel"
	"gitlab.com/gomidi/midi/midimessage/realtime"
	"gitlab.com/gomidi/midi/reader"
	"gitlab.com/gomidi/midi/writer"
)

// Filter reads from a midi.In port, gates the note messages and writes everything
// that is not dropped to a midi.Out port.
type Filter struct {
	gate           Gate
	channelIn      int8 // -1 = all channels
	transportReset bool
	releaseOnClose bool
	logger         *log.Logger
	in             midi.In
	out            midi.Out
	wr             *writer.Writer
	mx             sync.Mutex

	forwarded atomic.Uint64
	dropped   atomic.Uint64
	passed    atomic.Uint64
	resets    atomic.Uint64
}

// Stats counts what a Filter did with the incoming messages.
type Stats struct {
	Forwarded uint64 // note messages written to the out port
	Dropped   uint64 // note-ons that were blocked
	Passed    uint64 // other messages written unchanged
	Resets    uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("forwarded: %v dropped: %v passed: %v resets: %v", s.Forwarded, s.Dropped, s.Passed, s.Resets)
}

// New returns a new Filter, receiving from the given midi.In port and writing to the given midi.Out port
func New(in midi.In, out midi.Out, opts ...Option) *Filter {
	f := &Filter{
		in:             in,
		out:            out,
		channelIn:      -1,
		transportReset: true,
		releaseOnClose: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Reset sets all notes to idle, as if the transport had been stopped.
func (f *Filter) Reset() {
	f.mx.Lock()
	f.reset("manual")
	f.mx.Unlock()
}

func (f *Filter) reset(by string) {
	f.gate.Reset()
	f.resets.Add(1)
	f.logf("reset by %s", by)
}

// Sounding reports whether the filter considers the given note to be sounding
func (f *Filter) Sounding(ch, key uint8) bool {
	f.mx.Lock()
	defer f.mx.Unlock()
	return f.gate.Sounding(ch, key)
}

func (f *Filter) Stats() Stats {
	return Stats{
		Forwarded: f.forwarded.Load(),
		Dropped:   f.dropped.Load(),
		Passed:    f.passed.Load(),
		Resets:    f.resets.Load(),
	}
}

func (f *Filter) logf(format string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Printf(format, args...)
	}
}

func (f *Filter) isTransport(msg midi.Message) bool {
	switch msg {
	case realtime.Start, realtime.Stop, realtime.Reset:
		return true
	default:
		return false
	}
}

// dispatch handles a single message coming from the in port
func (f *Filter) dispatch(msg midi.Message) {
	f.mx.Lock()
	err := f.handleMessage(msg)
	f.mx.Unlock()
	if err != nil {
		f.logf("could not write %s: %v", msg.String(), err)
	}
}

func (f *Filter) pass(msg midi.Message) error {
	err := f.wr.Write(msg)
	if err == nil {
		f.passed.Add(1)
	}
	return err
}

// handleMessage must be called with the lock held
func (f *Filter) handleMessage(msg midi.Message) error {
	if f.transportReset && f.isTransport(msg) {
		f.reset(msg.String())
		return f.pass(msg)
	}

	if chMsg, isCh := msg.(channel.Message); isCh {
		if f.channelIn >= 0 && uint8(f.channelIn) != chMsg.Channel() {
			return f.pass(msg)
		}
	}

	if EventFromMessage(msg).Kind == Other {
		return f.pass(msg)
	}

	fwd, ok := f.gate.HandleMessage(msg)
	if !ok {
		f.dropped.Add(1)
		f.logf("dropped %s", msg.String())
		return nil
	}

	err := f.wr.Write(fwd)
	if err == nil {
		f.forwarded.Add(1)
	}
	return err
}

// Run starts listening on the in port. It returns immediately, the messages are
// processed in the callback of the driver.
func (f *Filter) Run() error {
	if !f.in.IsOpen() {
		return fmt.Errorf("midi in port no %v (%s) is not opened, please open before calling filter.Run", f.in.Number(), f.in.String())
	}

	if !f.out.IsOpen() {
		return fmt.Errorf("midi out port no %v (%s) is not opened, please open before calling filter.Run", f.out.Number(), f.out.String())
	}

	f.mx.Lock()
	f.wr = writer.New(f.out)
	// the gate decides about the notes, the writer must not keep its own note state
	f.wr.ConsolidateNotes(false)
	f.mx.Unlock()

	// realtime messages never reach reader.Each
	rt := func(msg midi.Message) func() {
		return func() { f.dispatch(msg) }
	}

	rd := reader.New(
		reader.NoLogger(),
		reader.Each(func(p *reader.Position, msg midi.Message) {
			f.dispatch(msg)
		}),
		reader.RTStart(rt(realtime.Start)),
		reader.RTStop(rt(realtime.Stop)),
		reader.RTReset(rt(realtime.Reset)),
		reader.RTContinue(rt(realtime.Continue)),
		reader.RTClock(rt(realtime.TimingClock)),
		reader.RTTick(rt(realtime.Tick)),
	)

	return rd.ListenTo(f.in)
}

// Close stops listening and sends a note off for every note that is still sounding.
func (f *Filter) Close() error {
	err := f.in.StopListening()

	f.mx.Lock()
	defer f.mx.Unlock()

	if f.wr == nil {
		f.gate.Reset()
		return err
	}

	if f.releaseOnClose {
		f.gate.EachSounding(func(ch, key uint8) {
			if werr := f.wr.Write(channel.Channel(ch).NoteOff(key)); werr != nil && err == nil {
				err = werr
			}
		})
	}

	f.gate.Reset()
	return err
}
