package invoke

import (
	"context"
	"encoding/json"

	"github.com/runnerr0/browsync/internal/model"
)

// Client is a typed wrapper over a Channel.
type Client struct {
	ch Channel
}

// NewClient returns a Client that sends commands over ch.
func NewClient(ch Channel) *Client {
	return &Client{ch: ch}
}

// GetConfig returns the tracked-browser config.
func (c *Client) GetConfig(ctx context.Context) (model.Config, error) {
	var cfg model.Config
	if err := c.call(ctx, CmdGetConfig, nil, &cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

// SetConfig replaces the tracked-browser config.
func (c *Client) SetConfig(ctx context.Context, cfg model.Config) error {
	return c.call(ctx, CmdSetConfig, setConfigArgs{Config: &cfg}, nil)
}

// ReadHistory reads [start, end] from the named browsers.
func (c *Client) ReadHistory(ctx context.Context, names []string, start, end int64) ([]model.History, error) {
	if names == nil {
		names = []string{}
	}
	args := readHistoryArgs{List: names, Start: &start, End: &end}
	var out []model.History
	if err := c.call(ctx, CmdReadHistory, args, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.History{}
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, command string, in, out any) error {
	var args json.RawMessage
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return model.Wrap(model.KindInvalidArgument, command, err)
		}
		args = data
	}

	result, err := c.ch.Invoke(ctx, command, args)
	if err != nil {
		return err
	}
	if out == nil || len(result) == 0 {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return model.Errorf(model.KindInvalidArgument, command, "decode result: %v", err)
	}
	return nil
}
