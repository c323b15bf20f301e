package core

import (
	"context"
	"fmt"
	"io"
	"strings"

	"momentum/internal/config"
	"momentum/internal/infra/persistence/fs"
	"momentum/internal/infra/persistence/memory"
	"momentum/internal/infra/persistence/postgres"
	"momentum/internal/infra/persistence/redis"
	"momentum/internal/infra/persistence/s3"
	"momentum/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistence gateway implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageFS       StorageDriver = "fs"       // one JSON file per key
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRedis    StorageDriver = "redis"    // Redis keys under a prefix
	StorageS3       StorageDriver = "s3"       // S3-compatible bucket
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenGateway selects a backend from cfg. Defaults to sqlite when the driver
// is unset. The returned closer releases backend connections.
func OpenGateway(ctx context.Context, cfg config.Storage) (Gateway, io.Closer, error) {
	driver := StorageDriver(strings.ToLower(strings.TrimSpace(cfg.Driver)))
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewGateway(), nopCloser{}, nil
	case StorageFS:
		gw, err := fs.New(cfg.FSRoot)
		if err != nil {
			return nil, nil, err
		}
		return gw, nopCloser{}, nil
	case StorageSQLite:
		gw, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return gw, gw, nil
	case StoragePostgres:
		gw, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return gw, gw, nil
	case StorageRedis:
		gw, err := redis.New(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return gw, gw, nil
	case StorageS3:
		gw, err := s3.New(ctx, s3.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKey,
			SecretAccessKey: cfg.S3.SecretKey,
			PathStyle:       cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return gw, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
