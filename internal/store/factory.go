package store

import (
	"context"
	"fmt"

	"recsync/internal/config"
	"recsync/internal/recsync"
)

// NewStoreFromConfig creates a SnapshotStore based on the store config type.
// S3 stores use the storage keys from secret when it carries them.
func NewStoreFromConfig(ctx context.Context, cfg config.StoreConfig, secret *recsync.Secret) (recsync.SnapshotStore, error) {
	switch cfg.Type {
	case config.StoreTypeMemory:
		return NewMemoryStore("snapshot"), nil
	case config.StoreTypeS3:
		opts := S3Options{
			Bucket:         cfg.S3Bucket,
			Key:            cfg.S3Key,
			Region:         cfg.S3Region,
			Endpoint:       cfg.S3Endpoint,
			ForcePathStyle: cfg.S3ForcePathStyle,
		}
		if secret != nil {
			opts.AccessKeyID = secret.StorageAccessKey
			opts.SecretAccessKey = secret.StorageSecretKey
		}
		s, err := NewS3Store(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreTypeFilesystem:
		if cfg.FSPath == "" {
			return nil, fmt.Errorf("filesystem store requires fs_path to be set")
		}
		s, err := NewFileSystemStore(cfg.FSPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

// NewFactory returns a recsync.StoreFactory for cfg. A memory store is
// created once and shared by every run, so it keeps its content between runs.
func NewFactory(cfg config.StoreConfig) recsync.StoreFactory {
	if cfg.Type == config.StoreTypeMemory {
		mem := NewMemoryStore("snapshot")
		return func(context.Context, *recsync.Secret) (recsync.SnapshotStore, error) {
			return mem, nil
		}
	}
	return func(ctx context.Context, secret *recsync.Secret) (recsync.SnapshotStore, error) {
		return NewStoreFromConfig(ctx, cfg, secret)
	}
}
