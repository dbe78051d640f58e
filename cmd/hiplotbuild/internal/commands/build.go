package commands

import (
	"context"
	"fmt"
)

type BuildCmd struct {
	BuildFlags `embed:""`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	pipeline, err := c.pipeline(globals)
	if err != nil {
		return err
	}

	if err := pipeline.Build(ctx); err != nil {
		return fmt.Errorf("failed to build js assets: %w", err)
	}

	return nil
}
