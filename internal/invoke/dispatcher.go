// Package invoke exposes the engine through named commands carrying JSON
// arguments and JSON results.
package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"

	"github.com/runnerr0/browsync/internal/logging"
	"github.com/runnerr0/browsync/internal/model"
)

// Command names understood by the Dispatcher.
const (
	CmdGetConfig   = "get_config"
	CmdSetConfig   = "set_config"
	CmdReadHistory = "read_history"
)

// Channel carries one command and its JSON arguments, returning the JSON
// result or an error.
type Channel interface {
	Invoke(ctx context.Context, command string, args json.RawMessage) (json.RawMessage, error)
}

// ConfigService reads and replaces the tracked-browser config.
type ConfigService interface {
	GetConfig(ctx context.Context) (model.Config, error)
	SetConfig(ctx context.Context, cfg model.Config) error
}

// HistoryService reads history across browsers.
type HistoryService interface {
	ReadHistory(ctx context.Context, names []string, start, end int64) (model.ReadResult, error)
}

type handlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Dispatcher routes commands to the engine. It implements Channel.
type Dispatcher struct {
	configs  ConfigService
	history  HistoryService
	logger   *slog.Logger
	handlers map[string]handlerFunc
}

// NewDispatcher returns a Dispatcher over configs and history. A nil
// logger discards output.
func NewDispatcher(configs ConfigService, history HistoryService, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	d := &Dispatcher{configs: configs, history: history, logger: logger}
	d.handlers = map[string]handlerFunc{
		CmdGetConfig:   d.getConfig,
		CmdSetConfig:   d.setConfig,
		CmdReadHistory: d.readHistory,
	}
	return d
}

// Commands lists the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for n := range d.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke runs command with args. Command names may carry a
// "plugin:<name>|" prefix.
func (d *Dispatcher) Invoke(ctx context.Context, command string, args json.RawMessage) (json.RawMessage, error) {
	name := CommandName(command)
	h, ok := d.handlers[name]
	if !ok {
		return nil, model.Errorf(model.KindUnknownCommand, "invoke", "unknown command %q", command)
	}

	d.logger.Debug("invoke", "command", name)
	out, err := h(ctx, args)
	if err != nil {
		d.logger.Debug("invoke failed", "command", name, "error", err)
		return nil, err
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, model.Wrap(model.KindInvalidArgument, name, err)
	}
	return data, nil
}

// CommandName strips an optional "plugin:<name>|" prefix.
func CommandName(command string) string {
	if strings.HasPrefix(command, "plugin:") {
		if i := strings.IndexByte(command, '|'); i >= 0 {
			return command[i+1:]
		}
	}
	return command
}

type setConfigArgs struct {
	Config *model.Config `json:"config"`
}

type readHistoryArgs struct {
	List  []string `json:"list"`
	Start *int64   `json:"start"`
	End   *int64   `json:"end"`
}

func (d *Dispatcher) getConfig(ctx context.Context, _ json.RawMessage) (any, error) {
	cfg, err := d.configs.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Browsers == nil {
		cfg.Browsers = []model.Browser{}
	}
	return cfg, nil
}

func (d *Dispatcher) setConfig(ctx context.Context, args json.RawMessage) (any, error) {
	var in setConfigArgs
	if err := decodeArgs(CmdSetConfig, args, &in); err != nil {
		return nil, err
	}
	if in.Config == nil {
		return nil, model.Errorf(model.KindInvalidArgument, CmdSetConfig, "missing \"config\" argument")
	}
	if err := d.configs.SetConfig(ctx, *in.Config); err != nil {
		return nil, err
	}
	return nil, nil
}

func (d *Dispatcher) readHistory(ctx context.Context, args json.RawMessage) (any, error) {
	var in readHistoryArgs
	if err := decodeArgs(CmdReadHistory, args, &in); err != nil {
		return nil, err
	}
	if in.Start == nil || in.End == nil {
		return nil, model.Errorf(model.KindInvalidArgument, CmdReadHistory, "\"start\" and \"end\" are required")
	}

	res, err := d.history.ReadHistory(ctx, in.List, *in.Start, *in.End)
	for _, diag := range res.Diagnostics {
		d.logger.Warn("browser skipped", "browser", diag.Browser, "kind", string(diag.Kind), "message", diag.Message)
	}
	if err != nil {
		return nil, err
	}
	if res.Entries == nil {
		res.Entries = []model.History{}
	}
	return res.Entries, nil
}

// decodeArgs unmarshals args into v. Empty or null args leave v untouched.
func decodeArgs(op string, args json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return model.Errorf(model.KindInvalidArgument, op, "decode arguments: %v", err)
	}
	return nil
}
