package smffilter

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Report describes what Filter did to a file.
type Report struct {
	Input        string        `yaml:"input,omitempty"`
	Output       string        `yaml:"output,omitempty"`
	Forwarded    int           `yaml:"forwarded"`
	Dropped      int           `yaml:"dropped"`
	Passed       int           `yaml:"passed"`
	DroppedNotes []DroppedNote `yaml:"dropped_notes,omitempty"`
}

// DroppedNote is a removed note-on. Tick is the absolute tick in its track.
type DroppedNote struct {
	Track    int   `yaml:"track"`
	Tick     int64 `yaml:"tick"`
	Channel  uint8 `yaml:"channel"`
	Note     uint8 `yaml:"note"`
	Velocity uint8 `yaml:"velocity"`
}

func (r Report) String() string {
	return fmt.Sprintf("%s -> %s: forwarded %v, dropped %v, passed %v", r.Input, r.Output, r.Forwarded, r.Dropped, r.Passed)
}

// WriteReport writes r as YAML.
func WriteReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("could not encode report: %w", err)
	}
	return enc.Close()
}
