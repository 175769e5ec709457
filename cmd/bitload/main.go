// Command bitload programs an FPGA bitstream onto a PCI-attached
// accelerator card via the vendor toolchain, optionally followed by a
// PCI hot reset so the host re-enumerates the reprogrammed device.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/hwtools/bitload"
	"github.com/hwtools/bitload/internal/config"
	"github.com/hwtools/bitload/internal/display"
	"github.com/hwtools/bitload/internal/pci"
	"github.com/hwtools/bitload/internal/programmer"
	"github.com/hwtools/bitload/internal/runner"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("bitload: ")

	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "bitload: %v\n", err)
		usage()
		os.Exit(1)
	}

	if opts.version {
		fmt.Println(bitload.Version)
		return
	}

	if opts.bitstream == "" {
		usage()
		os.Exit(1)
	}

	// Writing the FPGA and poking PCI control files both need root;
	// refuse before touching any file.
	if os.Geteuid() != 0 {
		display.Error(os.Stderr, "must be root to run; use sudo")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, pci.New()); err != nil {
		display.Error(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: bitload <bitstream-file> [-hot_reset] [-config <file>] [-timeout <d>] [-version]

Flags:
  -hot_reset       hot-reset the PCI device after programming
  -config <file>   configuration file (default bitload.yaml)
  -timeout <d>     override the configured toolchain timeout (e.g. 5m)
  -version         print the version and exit`)
}

// options holds the parsed command line.
type options struct {
	bitstream string
	hotReset  bool
	config    string
	timeout   time.Duration
	version   bool
}

// parseArgs parses the command line. The bitstream file is the single
// positional argument and may appear before, between, or after flags.
func parseArgs(args []string) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("bitload", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&opts.hotReset, "hot_reset", false, "hot-reset the PCI device after programming")
	fs.StringVar(&opts.config, "config", config.DefaultPath, "configuration file")
	fs.DurationVar(&opts.timeout, "timeout", 0, "override configured toolchain timeout")
	fs.BoolVar(&opts.version, "version", false, "print the version and exit")

	// flag stops at the first positional argument, so parse, consume
	// it, and resume on the remainder.
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		if opts.bitstream != "" {
			return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
		}
		opts.bitstream = fs.Arg(0)
		rest = fs.Args()[1:]
	}

	return opts, nil
}

func run(ctx context.Context, opts *options, bus *pci.Sysfs) error {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(opts.hotReset); err != nil {
		return err
	}

	timeout := cfg.Timeout()
	if opts.timeout > 0 {
		timeout = opts.timeout
	}

	p := &programmer.Programmer{
		Config: cfg,
		Runner: &runner.Runner{
			Timeout:   timeout,
			MaxOutput: cfg.MaxOutputBytes(),
		},
	}
	if err := p.Load(ctx, opts.bitstream); err != nil {
		return err
	}

	// Only after a successful programming run: the device is forced to
	// re-enumerate with its new configuration space.
	if opts.hotReset {
		return bus.HotReset(cfg.PCIDevice)
	}
	return nil
}
