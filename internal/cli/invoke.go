package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/browsync/internal/invoke"
)

// Execute implements the go-flags Commander interface for InvokeCommand.
func (c *InvokeCommand) Execute(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: browsync invoke COMMAND [JSON-ARGS]")
	}
	var raw json.RawMessage
	if len(args) == 2 {
		raw = json.RawMessage(args[1])
		if !json.Valid(raw) {
			return fmt.Errorf("arguments for %s are not valid JSON", args[0])
		}
	}
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		return c.run(ctx, a.dispatcher(), args[0], raw)
	})
}

func (c *InvokeCommand) run(ctx context.Context, ch invoke.Channel, command string, args json.RawMessage) error {
	out, err := ch.Invoke(ctx, command, args)
	if err != nil {
		if perr := printJSON(invoke.PayloadFor(err)); perr != nil {
			return perr
		}
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, out, "", "  "); err != nil {
		return fmt.Errorf("format result: %w", err)
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(os.Stdout)
	return err
}

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	return withApp(c.globals, c.app, func(ctx context.Context, a *app) error {
		in := c.stdin
		if in == nil {
			in = os.Stdin
		}
		out := c.stdout
		if out == nil {
			out = os.Stdout
		}
		a.logger.Info("serving boundary commands", "commands", a.dispatcher().Commands())
		return invoke.Serve(ctx, a.dispatcher(), in, out)
	})
}
