// Command distasm disassembles a stub binary back into Starch assembly text.
package main

import (
	"fmt"
	"os"

	cli "github.com/urfave/cli/v2"

	"starch/disasm"
)

func main() {
	app := cli.NewApp()
	app.Name = "distasm"
	app.Usage = "disassemble a Starch stub binary"
	app.ArgsUsage = "binary"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "write disassembly to this path instead of stdout",
		},
	}
	app.Action = func(c *cli.Context) error {
		bin := c.Args().First()
		if bin == "" {
			return cli.Exit("no input binary given", 1)
		}

		infile, err := os.Open(bin)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error: failed to open %q", bin), 1)
		}
		defer infile.Close()

		out := os.Stdout
		if path := c.String("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: failed to open %q", path), 1)
			}
			defer f.Close()
			out = f
		}

		if err := disasm.Disassemble(infile, out); err != nil {
			return cli.Exit(fmt.Sprintf("error: %v", err), 1)
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
