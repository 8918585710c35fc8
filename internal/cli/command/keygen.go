package command

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/minikv/internal/cli/output"
	"github.com/yndnr/minikv/internal/storage/snapshot"
)

// KeygenResult is the structured output of keygen.
type KeygenResult struct {
	Key    string `json:"key" yaml:"key"`
	Length int    `json:"length" yaml:"length"`
}

// KeygenCommand returns the keygen command, which prints a random
// snapshot encryption key for security.encryption_key.
func KeygenCommand() *cli.Command {
	return &cli.Command{
		Name:  "keygen",
		Usage: "Generate a snapshot encryption key (hex)",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "length",
				Usage: "key length in `BYTES`",
				Value: 32,
			},
		},
		Action: func(c *cli.Context) error {
			n := c.Int("length")
			if n < snapshot.MinKeyLength {
				return cli.Exit(fmt.Sprintf("keygen: length must be at least %d", snapshot.MinKeyLength), 2)
			}

			key, err := snapshot.GenerateKey(n)
			if err != nil {
				return fmt.Errorf("keygen: %w", err)
			}
			defer snapshot.ZeroKey(key)

			encoded := hex.EncodeToString(key)
			if ParseGlobalFlags(c).Output == output.FormatText {
				return printData(c, encoded)
			}
			return printData(c, KeygenResult{Key: encoded, Length: n})
		},
	}
}
