package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

type WatchCmd struct {
	BuildFlags `embed:""`
}

func (c *WatchCmd) Run(ctx context.Context, globals *Globals) error {
	pipeline, err := c.pipeline(globals)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return pipeline.Watch(ctx)
}
