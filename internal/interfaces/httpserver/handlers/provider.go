package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"dream-export/internal/config"
	"dream-export/internal/domain/export"
	"dream-export/internal/infrastructure/storage/bucket"
	"dream-export/internal/infrastructure/storage/drive"
)

// Provider wires HTTP handlers.
type Provider struct {
	Generation *GenerationHandler
	Drive      *DriveHandler
	Bucket     *BucketHandler
}

func NewProvider(cfg *config.Config, svc *export.Service, log zerolog.Logger) *Provider {
	driveFactory := func(ctx context.Context) (export.DriveStore, error) {
		return drive.NewStore(ctx, cfg, log)
	}
	bucketFactory := func(ctx context.Context) (export.BucketStore, error) {
		return bucket.NewStore(ctx, cfg, log)
	}
	return &Provider{
		Generation: NewGenerationHandler(cfg, svc, log),
		Drive:      NewDriveHandler(cfg, svc, driveFactory, log),
		Bucket:     NewBucketHandler(cfg, svc, bucketFactory, log),
	}
}
