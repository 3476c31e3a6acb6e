package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/duckgate/duckgate/internal/storage"
)

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Warehouse       string
}

type client interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// Warehouse checks that the bucket DuckDB reads tables from is reachable
// with the configured credentials. It never reads or writes table data.
type Warehouse struct {
	client   client
	location storage.Location
}

func New(cfg Config) (*Warehouse, error) {
	location, err := storage.ParseLocation(cfg.Warehouse)
	if err != nil {
		return nil, err
	}
	mc, err := newMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Warehouse{client: mc, location: location}, nil
}

func NewWithClient(warehouse string, c client) (*Warehouse, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	location, err := storage.ParseLocation(warehouse)
	if err != nil {
		return nil, err
	}
	return &Warehouse{client: c, location: location}, nil
}

func (w *Warehouse) Location() storage.Location {
	return w.location
}

func (w *Warehouse) HealthCheck(ctx context.Context) error {
	exists, err := w.client.BucketExists(ctx, w.location.Bucket)
	if err != nil {
		return fmt.Errorf("check warehouse bucket %q: %w", w.location.Bucket, err)
	}
	if !exists {
		return fmt.Errorf("warehouse bucket %q: %w", w.location.Bucket, storage.ErrBucketNotFound)
	}
	return nil
}

func newMinioClient(cfg Config) (*minioClient, error) {
	endpoint, err := storage.ParseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	clientImpl, err := minio.New(endpoint.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: endpoint.Secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioClient{client: clientImpl}, nil
}

type minioClient struct {
	client *minio.Client
}

func (m *minioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, mapMinioErr(err)
	}
	return exists, nil
}

func mapMinioErr(err error) error {
	if err == nil {
		return nil
	}
	var response minio.ErrorResponse
	if errors.As(err, &response) {
		switch response.Code {
		case "NoSuchBucket":
			return storage.ErrBucketNotFound
		}
	}
	return err
}
