package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/minikv/internal/cli/output"
	"github.com/yndnr/minikv/internal/cli/repl"
)

// ReplCommand returns the interactive mode command.
func ReplCommand() *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Start an interactive session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "history",
				Usage: "history `FILE` (empty disables)",
				Value: repl.NewHistory().File(),
			},
		},
		Action: func(c *cli.Context) error {
			flags := ParseGlobalFlags(c)

			client, err := Dial(c.Context, c)
			if err != nil {
				return err
			}
			defer client.Close()

			r := repl.New(repl.Config{
				Exec:      client,
				Formatter: output.NewFormatter(flags.Output),
				Prompt:    client.Addr() + "> ",
				Timeout:   flags.Timeout,
				Input:     c.App.Reader,
				Output:    c.App.Writer,
				History:   repl.NewHistoryFile(c.String("history"), 0),
			})
			return r.Run(c.Context)
		},
	}
}
