package command

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/minikv/internal/cli/config"
	"github.com/yndnr/minikv/internal/cli/connection"
	"github.com/yndnr/minikv/internal/cli/output"
	"github.com/yndnr/minikv/internal/infra/buildinfo"
	"github.com/yndnr/minikv/internal/resp"
)

// ErrErrorReply is returned when the server answered with an error reply.
// The reply has already been printed.
var ErrErrorReply = errors.New("server replied with an error")

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "minikv-cli",
		Usage:   "minikv command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			ExecCommand(),
			PingCommand(),
			GetCommand(),
			SetCommand(),
			SaveCommand(),
			ReplCommand(),
			BenchCommand(),
			StatsCommand(),
			KeygenCommand(),
		},
		Before: applyConfigFile,
	}
}

// globalFlags returns the global CLI flags. Unset flags fall back to the
// CLI config file, then to its defaults.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"MINIKV_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "server address (host:port)",
			EnvVars: []string{"MINIKV_SERVER"},
		},
		&cli.StringFlag{
			Name:    "admin",
			Usage:   "admin HTTP address",
			EnvVars: []string{"MINIKV_ADMIN"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, json, yaml",
			EnvVars: []string{"MINIKV_OUTPUT"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-request timeout",
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "connect with TLS",
		},
		&cli.BoolFlag{
			Name:  "tls-skip-verify",
			Usage: "skip server certificate verification",
		},
	}
}

// applyConfigFile fills the global flags the user did not set.
func applyConfigFile(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	defaults := map[string]string{
		"server":          cfg.Server,
		"admin":           cfg.Admin,
		"output":          cfg.Output,
		"timeout":         cfg.Timeout.String(),
		"tls":             strconv.FormatBool(cfg.TLS),
		"tls-skip-verify": strconv.FormatBool(cfg.TLSSkipVerify),
	}
	for name, value := range defaults {
		if c.IsSet(name) {
			continue
		}
		if err := c.Set(name, value); err != nil {
			return fmt.Errorf("apply config %s: %w", name, err)
		}
	}

	if _, err := output.ParseFormat(c.String("output")); err != nil {
		return err
	}
	return nil
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server        string
	Admin         string
	Output        output.Format
	Timeout       time.Duration
	TLS           bool
	TLSSkipVerify bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		Server:        c.String("server"),
		Admin:         c.String("admin"),
		Output:        format,
		Timeout:       c.Duration("timeout"),
		TLS:           c.Bool("tls"),
		TLSSkipVerify: c.Bool("tls-skip-verify"),
	}
}

// ConnOptions returns the client options the flags describe.
func (f *GlobalFlags) ConnOptions() connection.Options {
	opts := connection.DefaultOptions()
	if f.Timeout > 0 {
		opts.Timeout = f.Timeout
	}
	if f.TLS {
		opts.TLS = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: f.TLSSkipVerify,
		}
	}
	return opts
}

// Dial connects to the configured server.
func Dial(ctx context.Context, c *cli.Context) (*connection.Client, error) {
	flags := ParseGlobalFlags(c)
	return connection.Dial(ctx, flags.Server, flags.ConnOptions())
}

// runOnce sends one command and prints the reply.
func runOnce(c *cli.Context, args ...string) error {
	ctx := c.Context
	client, err := Dial(ctx, c)
	if err != nil {
		return err
	}
	defer client.Close()

	reply, err := client.Do(ctx, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return printReply(c, reply)
}

// printReply prints reply in the selected format. Error replies yield ErrErrorReply.
func printReply(c *cli.Context, reply resp.Message) error {
	if err := printData(c, reply); err != nil {
		return err
	}
	if _, ok := reply.(resp.Error); ok {
		return ErrErrorReply
	}
	return nil
}

func printData(c *cli.Context, data any) error {
	return output.NewFormatter(ParseGlobalFlags(c).Output).Format(c.App.Writer, data)
}
