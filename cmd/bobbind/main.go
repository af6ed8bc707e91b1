// Command bobbind wires the Uthernet II and AppleMouse peripheral
// cores onto a bus.Registry outside the full Apple II emulator,
// initializes them, and holds them open. It issues no bus accesses of
// its own.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/benj-edwards/bobbin/internal/bus"
	"github.com/benj-edwards/bobbin/internal/config"
	"github.com/benj-edwards/bobbin/internal/logging"
	"github.com/benj-edwards/bobbin/internal/mousecard"
	"github.com/benj-edwards/bobbin/internal/netcard"
)

type cli struct {
	Run     runCmd     `cmd:"" help:"Start the card registry and hold it open." default:"true"`
	Version versionCmd `cmd:"" help:"Show bobbind version."`

	NetSlot   int  `help:"Slot number for the Uthernet II card." default:"3"`
	MouseSlot int  `help:"Slot number for the AppleMouse card." default:"4"`
	Debug     bool `help:"Enable debug-level card tracing."`
}

type runCmd struct{}
type versionCmd struct{}

const version = "0.1.0"

func (r *runCmd) Run(c *cli) error {
	cfg := config.Load()
	if c.NetSlot != 0 {
		cfg.NetSlot = c.NetSlot
	}
	if c.MouseSlot != 0 {
		cfg.MouseSlot = c.MouseSlot
	}
	logging.SetDebug(c.Debug || cfg.Debug)

	registry := bus.NewRegistry()

	net := netcard.NewCard(cfg.NetSlot)
	if err := registry.Register(cfg.NetSlot, net); err != nil {
		return fmt.Errorf("bobbind: registering Uthernet II: %w", err)
	}

	mouse := mousecard.NewCard(cfg.MouseSlot, cfg.MouseROMPaths)
	if err := registry.Register(cfg.MouseSlot, mouse); err != nil {
		return fmt.Errorf("bobbind: registering AppleMouse: %w", err)
	}

	fmt.Fprintf(os.Stderr, "bobbind: Uthernet II in slot %d, AppleMouse in slot %d\n", cfg.NetSlot, cfg.MouseSlot)
	select {}
}

func (v *versionCmd) Run(c *cli) error {
	fmt.Println("bobbind", version)
	return nil
}

func main() {
	var c cli
	parser, err := kong.New(&c,
		kong.Name("bobbind"),
		kong.Description("Uthernet II and AppleMouse card emulation harness."),
		kong.UsageOnError(),
	)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(&c); err != nil {
		fmt.Fprintln(os.Stderr, "bobbind:", err)
		os.Exit(1)
	}
}
