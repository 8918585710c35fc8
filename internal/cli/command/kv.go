package command

import (
	"strconv"

	"github.com/urfave/cli/v2"
)

// ExecCommand returns the exec command, which sends arbitrary arguments.
func ExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Aliases:   []string{"x"},
		Usage:     "Send a raw command",
		ArgsUsage: "COMMAND [ARG...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("exec: missing command", 2)
			}
			return runOnce(c, c.Args().Slice()...)
		},
	}
}

// PingCommand returns the ping command.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage: "Check the server responds",
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return cli.Exit("ping: takes no arguments", 2)
			}
			return runOnce(c, "PING")
		},
	}
}

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get the value of a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("get: expected KEY", 2)
			}
			return runOnce(c, "GET", c.Args().First())
		},
	}
}

// SetCommand returns the set command.
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set a key to a value",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "ex",
				Usage: "expire after `SECONDS`",
			},
			&cli.Int64Flag{
				Name:  "px",
				Usage: "expire after `MILLISECONDS`",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("set: expected KEY VALUE", 2)
			}
			if c.IsSet("ex") && c.IsSet("px") {
				return cli.Exit("set: --ex and --px are mutually exclusive", 2)
			}

			args := []string{"SET", c.Args().Get(0), c.Args().Get(1)}
			switch {
			case c.IsSet("ex"):
				args = append(args, "EX", strconv.FormatInt(c.Int64("ex"), 10))
			case c.IsSet("px"):
				args = append(args, "PX", strconv.FormatInt(c.Int64("px"), 10))
			}
			return runOnce(c, args...)
		},
	}
}

// SaveCommand returns the save command.
func SaveCommand() *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Write a snapshot on the server",
		Action: func(c *cli.Context) error {
			return runOnce(c, "SAVE")
		},
	}
}
