package commands

import (
	"context"
	"fmt"
)

// PublishCmd runs only the publish step against a bundle that is already built.
type PublishCmd struct {
	BuildFlags `embed:""`
}

func (c *PublishCmd) Run(ctx context.Context, globals *Globals) error {
	pipeline, err := c.pipeline(globals)
	if err != nil {
		return err
	}
	publisher := pipeline.Publisher()
	artifact, err := publisher.Artifact(pipeline.OutputDir(), pipeline.Config().PublishArtifact())
	if err != nil {
		return err
	}

	res, err := publisher.Publish(ctx, artifact)
	if err != nil {
		return fmt.Errorf("failed to publish bundle: %w", err)
	}

	fmt.Printf("Published: %s\n", res.Artifact.Destination)
	fmt.Printf("Bytes: %d\n", res.Bytes)
	fmt.Printf("CRC64: %016x\n", res.Checksum)
	if res.Compressed != "" {
		fmt.Printf("Compressed: %s\n", res.Compressed)
	}

	return nil
}
