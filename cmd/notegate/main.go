package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"

	driver "gitlab.com/gomidi/rtmididrv"

	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/notegate"
	"gitlab.com/gomidi/notegate/smffilter"
	config "gitlab.com/metakeule/config"
)

var CONFIG = config.MustNew("notegate", notegate.VERSION, "blocks note ons for notes that are still sounding")

var (
	inArg      = CONFIG.NewInt32("in", "number of the input device", config.Default(int32(-1)), config.Shortflag('i'))
	outArg     = CONFIG.NewInt32("out", "number of the output device", config.Default(int32(-1)), config.Shortflag('o'))
	channelArg = CONFIG.NewInt32("channel", "only gate this channel (0-15), -1 gates all channels", config.Default(int32(-1)), config.Shortflag('c'))
	virtualArg = CONFIG.NewBool("virtual", "open virtual ports named notegate instead of the numbered devices", config.Default(false))
	noresetArg = CONFIG.NewBool("noreset", "keep the note state on realtime start, stop and reset", config.Default(false))
	verboseArg = CONFIG.NewBool("verbose", "log dropped notes and resets", config.Default(false), config.Shortflag('v'))

	listCmd = CONFIG.MustCommand("list", "list devices")

	smfCmd    = CONFIG.MustCommand("smf", "filter a standard MIDI file")
	fileArg   = smfCmd.NewString("file", "the SMF file to read", config.Required, config.Shortflag('f'))
	targetArg = smfCmd.NewString("target", "the SMF file to write", config.Required, config.Shortflag('t'))
	reportArg = smfCmd.NewString("report", "write a YAML report of the dropped notes to this file", config.Shortflag('r'))
)

func main() {
	err := run()
	if err != nil {

		fmt.Fprintf(os.Stderr, "ERROR: %s\n\n", err.Error())
		os.Exit(1)
		return
	}
	os.Exit(0)
}

func run() error {
	err := CONFIG.Run()

	if err != nil {
		fmt.Fprint(os.Stderr, CONFIG.Usage())
		return err
	}

	if CONFIG.ActiveCommand() == smfCmd {
		return runSMF()
	}

	drv, err := driver.New()

	if err != nil {
		return err
	}

	// make sure to close all open ports at the end
	defer drv.Close()

	if CONFIG.ActiveCommand() == listCmd {
		listMIDIDevices(drv)
		return nil
	}

	inPort, outPort, err := openPorts(drv)
	if err != nil {
		listMIDIDevices(drv)
		return err
	}

	defer inPort.Close()
	defer outPort.Close()

	opts := []notegate.Option{}

	if ch := channelArg.Get(); ch >= 0 {
		if ch > 15 {
			return fmt.Errorf("invalid channel %v, must be between 0 and 15", ch)
		}
		opts = append(opts, notegate.ChannelIn(uint8(ch)))
	}

	if noresetArg.Get() {
		opts = append(opts, notegate.NoTransportReset())
	}

	if verboseArg.Get() {
		opts = append(opts, notegate.Logger(log.New(os.Stderr, "notegate: ", log.Ltime|log.Lmicroseconds)))
	}

	filter := notegate.New(inPort, outPort, opts...)

	err = filter.Run()
	if err != nil {
		return err
	}

	fmt.Printf("gating %s -> %s\n", inPort.String(), outPort.String())

	sigchan := make(chan os.Signal, 10)

	// listen for ctrl+c
	signal.Notify(sigchan, os.Interrupt)

	// interrupt has happend
	<-sigchan
	fmt.Println("\n--interrupted!")

	err = filter.Close()
	fmt.Println(filter.Stats())
	return err
}

func openPorts(drv *driver.Driver) (in midi.In, out midi.Out, err error) {
	if virtualArg.Get() {
		in, err = drv.OpenVirtualIn("notegate")
		if err != nil {
			return nil, nil, fmt.Errorf("could not open virtual in port: %w", err)
		}

		out, err = drv.OpenVirtualOut("notegate")
		if err != nil {
			in.Close()
			return nil, nil, fmt.Errorf("could not open virtual out port: %w", err)
		}

		if !in.IsOpen() {
			err = in.Open()
		}
		if err == nil && !out.IsOpen() {
			err = out.Open()
		}
		if err != nil {
			in.Close()
			out.Close()
			return nil, nil, fmt.Errorf("could not open virtual ports: %w", err)
		}
		return in, out, nil
	}

	if inArg.Get() < 0 || outArg.Get() < 0 {
		return nil, nil, fmt.Errorf("please set the in and out device numbers or use --virtual")
	}

	in, err = midi.OpenIn(drv, int(inArg.Get()), "")
	if err != nil {
		return nil, nil, fmt.Errorf("could not open in port %v: %w", inArg.Get(), err)
	}

	out, err = midi.OpenOut(drv, int(outArg.Get()), "")
	if err != nil {
		in.Close()
		return nil, nil, fmt.Errorf("could not open out port %v: %w", outArg.Get(), err)
	}

	return in, out, nil
}

func runSMF() error {
	rep, err := smffilter.File(fileArg.Get(), targetArg.Get())
	if err != nil {
		return err
	}

	fmt.Println(rep)

	if reportArg.Get() == "" {
		return nil
	}

	f, err := os.Create(reportArg.Get())
	if err != nil {
		return fmt.Errorf("could not create %v: %w", reportArg.Get(), err)
	}

	err = smffilter.WriteReport(f, rep)
	if err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func listMIDIDevices(d midi.Driver) {
	ins, _ := d.Ins()

	fmt.Print("\n--- MIDI input ports ---\n\n")

	for _, port := range ins {
		fmt.Printf("[%d] %#v\n", port.Number(), port.String())
	}

	outs, _ := d.Outs()

	fmt.Print("\n--- MIDI output ports ---\n\n")

	for _, port := range outs {
		fmt.Printf("[%d] %#v\n", port.Number(), port.String())
	}

	fmt.Print("\n\n")
}
