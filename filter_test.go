package notegate_test

import (
	"bytes"
	"testing"
	"time"

	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/midi/midimessage/realtime"
	"gitlab.com/gomidi/midi/reader"
	"gitlab.com/gomidi/midi/testdrv"
	"gitlab.com/gomidi/midi/writer"
	"gitlab.com/gomidi/notegate"
)

type cable struct {
	midi.Driver
	in  midi.In
	out midi.Out
}

func newCable(name string) *cable {
	var c cable
	c.Driver = testdrv.New("fake cable: " + name)
	ins, _ := c.Driver.Ins()
	outs, _ := c.Driver.Outs()
	c.in, c.out = ins[0], outs[0]
	c.in.Open()
	c.out.Open()
	return &c
}

type filterTester struct {
	filter *notegate.Filter
	rd     *reader.Reader
	*writer.Writer
	bf     bytes.Buffer
	cable1 *cable
	cable2 *cable
}

func newFilterTester(opts ...notegate.Option) *filterTester {
	var ft filterTester
	ft.cable1 = newCable("write to filter")
	ft.cable2 = newCable("read from filter")
	rt := func(name string) func() {
		return func() { ft.bf.WriteString(name + "\n") }
	}
	ft.rd = reader.New(
		reader.NoLogger(),
		reader.Each(func(p *reader.Position, msg midi.Message) {
			ft.bf.WriteString(msg.String() + "\n")
		}),
		reader.RTStart(rt("realtime start")),
		reader.RTStop(rt("realtime stop")),
		reader.RTReset(rt("realtime reset")),
		reader.RTContinue(rt("realtime continue")),
		reader.RTClock(rt("realtime clock")),
	)

	ft.filter = notegate.New(ft.cable1.in, ft.cable2.out, opts...)
	ft.Writer = writer.New(ft.cable1.out)
	// repeated note ons must reach the filter
	ft.Writer.ConsolidateNotes(false)
	return &ft
}

func (ft *filterTester) Run() error {
	if err := ft.rd.ListenTo(ft.cable2.in); err != nil {
		return err
	}
	return ft.filter.Run()
}

func (ft *filterTester) Close() {
	ft.cable1.Close()
	ft.cable2.Close()
}

func (ft *filterTester) Result() string {
	return ft.bf.String()
}

func settle() {
	time.Sleep(50 * time.Millisecond)
}

func TestFilter(t *testing.T) {
	var f *filterTester

	var tests = []struct {
		opts     []notegate.Option
		fn       func()
		descr    string
		expected string
	}{
		{
			nil,
			func() { writer.Pitchbend(f, 1000) },
			"pitchbend passthrough",
			"channel.Pitchbend channel 0 value 1000 absValue 9192\n",
		},
		{
			nil,
			func() {
				writer.NoteOn(f, 60, 100)
				writer.NoteOn(f, 60, 80)
				writer.Aftertouch(f, 100)
				writer.NoteOff(f, 60)
				writer.NoteOn(f, 60, 90)
			},
			"retrigger blocked",
			`channel.NoteOn channel 0 key 60 velocity 100
channel.Aftertouch channel 0 pressure 100
channel.NoteOff channel 0 key 60
channel.NoteOn channel 0 key 60 velocity 90
`,
		},
		{
			nil,
			func() {
				writer.NoteOff(f, 40)
				writer.NoteOff(f, 40)
				writer.NoteOn(f, 40, 100)
			},
			"note off for idle note",
			`channel.NoteOff channel 0 key 40
channel.NoteOff channel 0 key 40
channel.NoteOn channel 0 key 40 velocity 100
`,
		},
		{
			nil,
			func() {
				writer.NoteOn(f, 60, 100)
				f.SetChannel(1)
				writer.NoteOn(f, 60, 100)
				writer.NoteOn(f, 60, 100)
				f.SetChannel(0)
				writer.NoteOn(f, 60, 100)
			},
			"channels are independent",
			`channel.NoteOn channel 0 key 60 velocity 100
channel.NoteOn channel 1 key 60 velocity 100
`,
		},
		{
			[]notegate.Option{notegate.ChannelIn(0)},
			func() {
				writer.NoteOn(f, 60, 100)
				writer.NoteOn(f, 60, 100)
				f.SetChannel(1)
				writer.NoteOn(f, 60, 100)
				writer.NoteOn(f, 60, 100)
			},
			"only channel in is gated",
			`channel.NoteOn channel 0 key 60 velocity 100
channel.NoteOn channel 1 key 60 velocity 100
channel.NoteOn channel 1 key 60 velocity 100
`,
		},
	}

	for i, test := range tests {
		f = newFilterTester(test.opts...)
		if err := f.Run(); err != nil {
			t.Fatalf("[%v] could not run: %v", i, err)
		}

		test.fn()
		settle()
		got := f.Result()
		f.filter.Close()
		f.Close()

		if got != test.expected {
			t.Errorf("[%v] %q\ngot:\n%s\n\nexpected:\n%s", i, test.descr, got, test.expected)
		}
	}
}

func TestFilterReleasesOnClose(t *testing.T) {
	var tests = []struct {
		opts     []notegate.Option
		descr    string
		expected string
	}{
		{
			nil,
			"release",
			`channel.NoteOn channel 0 key 60 velocity 100
channel.NoteOn channel 0 key 64 velocity 100
channel.NoteOff channel 0 key 60
channel.NoteOff channel 0 key 64
`,
		},
		{
			[]notegate.Option{notegate.KeepHangingNotes()},
			"keep hanging notes",
			`channel.NoteOn channel 0 key 60 velocity 100
channel.NoteOn channel 0 key 64 velocity 100
`,
		},
	}

	for i, test := range tests {
		f := newFilterTester(test.opts...)
		if err := f.Run(); err != nil {
			t.Fatalf("[%v] could not run: %v", i, err)
		}

		writer.NoteOn(f, 60, 100)
		writer.NoteOn(f, 64, 100)
		settle()

		if err := f.filter.Close(); err != nil {
			t.Errorf("[%v] close: %v", i, err)
		}
		settle()
		got := f.Result()
		f.Close()

		if got != test.expected {
			t.Errorf("[%v] %q\ngot:\n%s\n\nexpected:\n%s", i, test.descr, got, test.expected)
		}
	}
}

func TestFilterStats(t *testing.T) {
	f := newFilterTester()
	if err := f.Run(); err != nil {
		t.Fatalf("could not run: %v", err)
	}

	writer.NoteOn(f, 60, 100)
	writer.NoteOn(f, 60, 100)
	writer.NoteOn(f, 60, 100)
	writer.ControlChange(f, 7, 100)
	writer.NoteOff(f, 60)
	settle()

	got := f.filter.Stats()
	f.filter.Close()
	f.Close()

	expected := notegate.Stats{Forwarded: 2, Dropped: 2, Passed: 1}

	if got != expected {
		t.Errorf("got %s, expected %s", got, expected)
	}
}

func TestFilterManualReset(t *testing.T) {
	f := newFilterTester()
	if err := f.Run(); err != nil {
		t.Fatalf("could not run: %v", err)
	}

	writer.NoteOn(f, 60, 100)
	settle()

	if !f.filter.Sounding(0, 60) {
		t.Errorf("0/60 should be sounding")
	}

	f.filter.Reset()
	writer.NoteOn(f, 60, 101)
	settle()

	got := f.Result()
	f.filter.Close()
	f.Close()

	expected := `channel.NoteOn channel 0 key 60 velocity 100
channel.NoteOn channel 0 key 60 velocity 101
`

	if got != expected {
		t.Errorf("got:\n%s\n\nexpected:\n%s", got, expected)
	}
}

func TestFilterRunClosedPort(t *testing.T) {
	c := newCable("closed")
	defer c.Close()
	c.in.Close()

	f := notegate.New(c.in, c.out)

	if err := f.Run(); err == nil {
		t.Errorf("expected error for closed in port")
	}
}

func TestFilterTransport(t *testing.T) {
	var tests = []struct {
		opts     []notegate.Option
		msg      midi.Message
		name     string
		sounding bool
		resets   uint64
	}{
		{nil, realtime.Start, "realtime start", false, 1},
		{nil, realtime.Stop, "realtime stop", false, 1},
		{nil, realtime.Reset, "realtime reset", false, 1},
		{nil, realtime.Continue, "realtime continue", true, 0},
		{nil, realtime.TimingClock, "realtime clock", true, 0},
		{[]notegate.Option{notegate.NoTransportReset()}, realtime.Stop, "realtime stop", true, 0},
	}

	for i, test := range tests {
		f := newFilterTester(test.opts...)
		if err := f.Run(); err != nil {
			t.Fatalf("[%v] could not run: %v", i, err)
		}

		writer.NoteOn(f, 60, 100)
		settle()
		f.Write(test.msg)
		settle()

		sounding := f.filter.Sounding(0, 60)
		st := f.filter.Stats()
		got := f.Result()
		f.filter.Close()
		f.Close()

		if sounding != test.sounding {
			t.Errorf("[%v] after %s: sounding = %v, expected %v", i, test.name, sounding, test.sounding)
		}

		if st.Passed != 1 || st.Resets != test.resets {
			t.Errorf("[%v] after %s: unexpected stats %s", i, test.name, st)
		}

		expected := "channel.NoteOn channel 0 key 60 velocity 100\n" + test.name + "\n"

		if got != expected {
			t.Errorf("[%v] %s\ngot:\n%s\n\nexpected:\n%s", i, test.name, got, expected)
		}
	}
}

func TestFilterTransportAllowsRetrigger(t *testing.T) {
	f := newFilterTester()
	if err := f.Run(); err != nil {
		t.Fatalf("could not run: %v", err)
	}

	writer.NoteOn(f, 60, 100)
	writer.NoteOn(f, 60, 100)
	settle()
	f.Write(realtime.Stop)
	settle()
	writer.NoteOn(f, 60, 90)
	settle()

	st := f.filter.Stats()
	got := f.Result()
	f.filter.Close()
	f.Close()

	expected := `channel.NoteOn channel 0 key 60 velocity 100
realtime stop
channel.NoteOn channel 0 key 60 velocity 90
`

	if got != expected {
		t.Errorf("got:\n%s\n\nexpected:\n%s", got, expected)
	}

	if want := (notegate.Stats{Forwarded: 2, Dropped: 1, Passed: 1, Resets: 1}); st != want {
		t.Errorf("got %s, expected %s", st, want)
	}
}
