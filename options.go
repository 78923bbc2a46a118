package notegate

import (
	"log"
)

type Option func(f *Filter)

// ChannelIn sets the midi channel to gate (0-15). Messages on other channels pass through.
func ChannelIn(ch uint8) Option {
	return func(f *Filter) {
		if ch < 16 {
			f.channelIn = int8(ch)
		}
	}
}

// NoTransportReset keeps the gate state when realtime start, stop or reset messages come in
func NoTransportReset() Option {
	return func(f *Filter) {
		f.transportReset = false
	}
}

// KeepHangingNotes prevents Close from sending note offs for the notes that are still sounding
func KeepHangingNotes() Option {
	return func(f *Filter) {
		f.releaseOnClose = false
	}
}

// Logger sets a logger that reports dropped notes and resets
func Logger(l *log.Logger) Option {
	return func(f *Filter) {
		f.logger = l
	}
}
