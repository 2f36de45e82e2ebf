package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/haptix-works/owt"
	"github.com/haptix-works/owt/ffdevice"
	"github.com/haptix-works/owt/wavetable"
)

func main() {
	var (
		device      = flag.String("e", "/dev/input/event1", "Force-feedback device node")
		waveform    = flag.String("w", "", "OWT waveform string to compile and upload")
		bank        = flag.String("b", "", "Play a resident waveform: RAM, ROM, OWT or BUZ")
		index       = flag.Int("n", 1, "Waveform index within the bank")
		duration    = flag.Int("d", 0, "Playback duration in ms (0 = waveform default)")
		period      = flag.Int("p", 10, "Sine period in ms for the BUZ bank")
		magnitude   = flag.Int("m", 255, "Sine magnitude 0-255 for the BUZ bank")
		gain        = flag.Int("g", -1, "Set playback gain 0-100")
		triggerID   = flag.Int("t", -1, "Trigger an already-uploaded effect id")
		gpi         = flag.Int("a", -1, "Bind the effect to GPI trigger line 0-7")
		falling     = flag.Bool("fall", false, "GPI trigger on the falling edge")
		uploadOnly  = flag.Bool("u", false, "Upload without triggering")
		eraseAfter  = flag.Bool("r", false, "Erase the effect before exit")
		exitDelay   = flag.Int("x", 0, "Delay before exit in ms")
		dryRun      = flag.Bool("dry", false, "Compile only and print the packed bytes")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		ffdevice.SetLogger(logger)
	}

	if *dryRun {
		if *waveform == "" {
			fmt.Fprintln(os.Stderr, "Usage: owt -dry -w <waveform string>")
			os.Exit(1)
		}
		data, err := owt.Compile(*waveform)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d bytes packed\n", len(data))
		fmt.Print(hex.Dump(data))
		return
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*device); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *waveform == "" && *bank == "" && *gain < 0 && *triggerID < 0 {
		fmt.Fprintln(os.Stderr, "Usage: owt -w <waveform string> [-e device] [-u] [-r]")
		fmt.Fprintln(os.Stderr, "       owt -b <RAM|ROM|OWT|BUZ> -n <index> [-d ms] [-p ms] [-m 0-255]")
		fmt.Fprintln(os.Stderr, "       owt -t <effect id> | -g <0-100>")
		fmt.Fprintln(os.Stderr, "       owt -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(*device, *waveform, *bank, *index, *duration, *period,
		*magnitude, *gain, *triggerID, *gpi, *falling, *uploadOnly, *eraseAfter, *exitDelay); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(device, waveform, bank string, index, duration, period, magnitude,
	gain, triggerID, gpi int, falling, uploadOnly, eraseAfter bool, exitDelay int) error {

	dev, err := ffdevice.Open(device)
	if err != nil {
		return err
	}
	defer dev.Close()

	if gain >= 0 {
		if err := dev.SetGain(gain); err != nil {
			return err
		}
		fmt.Printf("Gain set to %d%%\n", gain)
	}

	if triggerID >= 0 {
		if err := dev.Trigger(int16(triggerID), true); err != nil {
			return err
		}
		fmt.Printf("Effect %d triggered\n", triggerID)
	}

	var gpiCfg uint16
	if gpi >= 0 {
		gpiCfg = ffdevice.GPIConfig(!falling, uint8(gpi))
	}

	id := int16(ffdevice.NewEffect)
	uploaded := false

	switch {
	case waveform != "":
		data, err := owt.Compile(waveform)
		if err != nil {
			return err
		}
		id, err = dev.UploadCustom(data, gpiCfg, ffdevice.NewEffect)
		if err != nil {
			return err
		}
		fmt.Printf("Effect %d uploaded, %d bytes\n", id, len(data))
		uploaded = true

	case strings.EqualFold(bank, "BUZ"):
		id, err = dev.UploadSine(uint16(period), uint8(magnitude), gpiCfg, ffdevice.NewEffect)
		if err != nil {
			return err
		}
		fmt.Printf("Effect %d uploaded, sine %d ms\n", id, period)
		uploaded = true

	case bank != "":
		bankNo, ok := bankNumber(bank)
		if !ok {
			return fmt.Errorf("unknown bank %q", bank)
		}
		if duration > 0 {
			// A duration needs a one-reference Composite waveform;
			// the bare bank/index form cannot carry one.
			ref := fmt.Sprintf("%s%d.100.%d", strings.ToUpper(bank), index, duration)
			data, err := owt.Compile(ref)
			if err != nil {
				return err
			}
			id, err = dev.UploadCustom(data, gpiCfg, ffdevice.NewEffect)
			if err != nil {
				return err
			}
			fmt.Printf("Effect %d uploaded, %s\n", id, ref)
		} else {
			id, err = dev.UploadBank(bankNo, uint16(index), gpiCfg, ffdevice.NewEffect)
			if err != nil {
				return err
			}
			fmt.Printf("Effect %d uploaded, %s %d\n", id, strings.ToUpper(bank), index)
		}
		uploaded = true
	}

	// A GPI-bound effect fires from its hardware line, not from here.
	if uploaded && !uploadOnly && gpi < 0 {
		if err := dev.Trigger(id, true); err != nil {
			return err
		}
		if duration > 0 {
			time.Sleep(time.Duration(duration) * time.Millisecond)
			if err := dev.Trigger(id, false); err != nil {
				return err
			}
		}
	}

	if exitDelay > 0 {
		time.Sleep(time.Duration(exitDelay) * time.Millisecond)
	}

	if eraseAfter && uploaded {
		if err := dev.Erase(id); err != nil {
			return err
		}
	}

	return nil
}

func bankNumber(name string) (uint16, bool) {
	switch strings.ToUpper(name) {
	case "RAM":
		return uint16(wavetable.BankRAM), true
	case "ROM":
		return uint16(wavetable.BankROM), true
	case "OWT":
		return uint16(wavetable.BankOWT), true
	}
	return 0, false
}
