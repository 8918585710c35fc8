package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/yndnr/minikv/internal/cli/output"
	"github.com/yndnr/minikv/internal/resp"
)

// Executor sends one command to the server.
type Executor interface {
	Do(ctx context.Context, args ...string) (resp.Message, error)
}

// Config configures a REPL.
type Config struct {
	Exec      Executor
	Formatter output.Formatter

	// Prompt is printed before each line. Defaults to "minikv> ".
	Prompt string

	// Timeout bounds one command. Zero means no limit.
	Timeout time.Duration

	Input   io.Reader
	Output  io.Writer
	History *History
}

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	exec      Executor
	formatter output.Formatter
	prompt    string
	timeout   time.Duration

	input     io.Reader
	output    io.Writer
	completer *Completer
	history   *History
}

// New creates a new REPL instance.
func New(cfg Config) *REPL {
	r := &REPL{
		exec:      cfg.Exec,
		formatter: cfg.Formatter,
		prompt:    cfg.Prompt,
		timeout:   cfg.Timeout,
		input:     cfg.Input,
		output:    cfg.Output,
		completer: NewCompleter(),
		history:   cfg.History,
	}

	if r.formatter == nil {
		r.formatter = output.NewFormatter(output.FormatText)
	}
	if r.prompt == "" {
		r.prompt = "minikv> "
	}
	if r.input == nil {
		r.input = os.Stdin
	}
	if r.output == nil {
		r.output = os.Stdout
	}
	if r.history == nil {
		r.history = NewHistoryFile("", 0)
	}
	return r
}

// Run reads lines until EOF, exit/quit or ctx is done.
// A server-side QUIT ends the loop after printing its reply.
func (r *REPL) Run(ctx context.Context) error {
	_ = r.history.Load()
	defer r.history.Save()

	reader := bufio.NewReader(r.input)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line == "" {
			if eof {
				fmt.Fprintln(r.output)
				return nil
			}
			continue
		}

		r.history.Add(line)

		done, execErr := r.execute(ctx, line)
		if execErr != nil {
			fmt.Fprintf(r.output, "Error: %v\n", execErr)
		}
		if done || eof {
			return nil
		}
	}
}

// execute runs one line. done reports that the session should end.
func (r *REPL) execute(ctx context.Context, line string) (done bool, err error) {
	args, err := SplitArgs(line)
	if err != nil {
		return false, err
	}
	if len(args) == 0 {
		return false, nil
	}

	switch strings.ToLower(args[0]) {
	case "exit":
		return true, nil
	case "help":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		fmt.Fprintln(r.output, strings.Join(r.completer.Complete(prefix), " "))
		return false, nil
	case "history":
		for i, entry := range r.history.Entries() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, entry)
		}
		return false, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	reply, err := r.exec.Do(ctx, args...)
	if err != nil {
		return false, err
	}
	if err := r.formatter.Format(r.output, reply); err != nil {
		return false, err
	}

	return strings.EqualFold(args[0], "QUIT"), nil
}
