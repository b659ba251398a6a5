// Command stem emulates a Starch stub binary image.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/xyproto/env/v2"

	cli "github.com/urfave/cli/v2"

	"starch/vmcore"
)

func main() {
	app := cli.NewApp()
	app.Name = "stem"
	app.Usage = "run a Starch stub binary"
	app.ArgsUsage = "image"
	app.Flags = []cli.Flag{
		&cli.Uint64Flag{
			Name:    "cycles",
			Aliases: []string{"c"},
			Value:   env.Uint64("STARCH_CYCLES", 0),
			Usage:   "maximum number of steps to execute (0 means unbounded)",
		},
		&cli.StringFlag{
			Name:    "dump",
			Aliases: []string{"d"},
			Usage:   "write a hex dump of touched memory to this path on termination",
		},
	}
	app.Action = func(c *cli.Context) error {
		image := c.Args().First()
		if image == "" {
			return cli.Exit("no image given", 1)
		}

		mc, err := vmcore.LoadStub(image)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error: %v", err), 1)
		}

		result, cycles := mc.Run(c.Uint64("cycles"))

		if dump := c.String("dump"); dump != "" {
			if err := writeDump(dump, mc); err != nil {
				return cli.Exit(fmt.Sprintf("error: failed to write dump: %v", err), 1)
			}
		}

		fmt.Fprintf(os.Stderr, "%s after %d cycle(s)\n", result, cycles)
		if result.Fault() {
			return cli.Exit("", 1)
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func writeDump(path string, mc *vmcore.Machine) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pages := mc.Memory.DumpHex(0, 0)
	bases := make([]uint64, 0, len(pages))
	for base := range pages {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })

	for _, base := range bases {
		data := pages[base]
		for i := 0; i < len(data); i += 16 {
			end := i + 16
			if end > len(data) {
				end = len(data)
			}
			if _, err := fmt.Fprintf(f, "%016x:", base+uint64(i)); err != nil {
				return err
			}
			for _, b := range data[i:end] {
				if _, err := fmt.Fprintf(f, " %02x", b); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintln(f); err != nil {
				return err
			}
		}
	}
	return nil
}
