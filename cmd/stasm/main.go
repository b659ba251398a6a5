// Command stasm assembles Starch source text into a stub binary.
package main

import (
	"fmt"
	"os"

	"github.com/xyproto/env/v2"

	cli "github.com/urfave/cli/v2"

	"starch/asm"
)

func main() {
	app := cli.NewApp()
	app.Name = "stasm"
	app.Usage = "assemble Starch source into a stub binary"
	app.ArgsUsage = "source"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Value:   "a.stb",
			Usage:   "binary output path",
		},
		&cli.IntFlag{
			Name:  "maxnsec",
			Value: env.Int("STARCH_MAXNSEC", 4),
			Usage: "maximum number of sections reserved in the output directory",
		},
	}
	app.Action = func(c *cli.Context) error {
		source := c.Args().First()
		if source == "" {
			return cli.Exit("no source file given (stdin input is not yet supported)", 1)
		}

		as, err := asm.AssembleFile(source)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error: %v", err), 1)
		}

		secs, err := as.Encode()
		if err != nil {
			return cli.Exit(fmt.Sprintf("error: %v", err), 1)
		}

		if err := asm.WriteStub(c.String("output"), c.Int("maxnsec"), secs); err != nil {
			return cli.Exit(fmt.Sprintf("error: %v", err), 1)
		}

		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
