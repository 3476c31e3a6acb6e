package storage

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var ErrBucketNotFound = errors.New("bucket not found")

// Endpoint is an S3 endpoint reduced to the host:port form that both minio-go
// and DuckDB's s3_endpoint setting expect.
type Endpoint struct {
	Host   string
	Secure bool
}

// ParseEndpoint accepts either a bare host:port or a URL. An explicit scheme
// decides TLS; useSSL only applies to a bare host.
func ParseEndpoint(raw string, useSSL bool) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, fmt.Errorf("endpoint is required")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return Endpoint{}, fmt.Errorf("parse endpoint URL: %w", err)
		}
		if parsed.Host == "" {
			return Endpoint{}, fmt.Errorf("endpoint host is required")
		}
		return Endpoint{Host: parsed.Host, Secure: parsed.Scheme == "https"}, nil
	}
	return Endpoint{Host: strings.TrimRight(raw, "/"), Secure: useSSL}, nil
}

// Location is a parsed s3://bucket/prefix warehouse URI.
type Location struct {
	Bucket string
	Prefix string
}

func (l Location) String() string {
	if l.Prefix == "" {
		return "s3://" + l.Bucket + "/"
	}
	return "s3://" + l.Bucket + "/" + l.Prefix + "/"
}

func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parse warehouse location: %w", err)
	}
	if parsed.Scheme != "s3" && parsed.Scheme != "s3a" {
		return Location{}, fmt.Errorf("invalid warehouse location %q: scheme must be s3", raw)
	}
	if parsed.Host == "" {
		return Location{}, fmt.Errorf("invalid warehouse location %q: bucket is required", raw)
	}
	prefix := strings.Trim(parsed.Path, "/")
	if prefix != "" {
		prefix = path.Clean(prefix)
	}
	return Location{Bucket: parsed.Host, Prefix: prefix}, nil
}
