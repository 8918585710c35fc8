package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/minikv/internal/cli/connection"
	"github.com/yndnr/minikv/internal/server/httpserver/handler"
)

// StatsCommand returns the stats command, which reads the admin endpoint.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show server statistics from the admin endpoint",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "ready",
				Usage: "only check readiness",
			},
		},
		Action: func(c *cli.Context) error {
			flags := ParseGlobalFlags(c)
			client := connection.NewHTTPClient(flags.Admin, flags.ConnOptions().Timeout)

			if c.Bool("ready") {
				var health handler.HealthResponse
				if err := client.Get(c.Context, "/ready", &health); err != nil {
					return err
				}
				return printData(c, health)
			}

			var stats handler.StatsResponse
			if err := client.Get(c.Context, "/stats", &stats); err != nil {
				return err
			}
			return printData(c, stats)
		},
	}
}
