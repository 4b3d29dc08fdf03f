package s3

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/afs/backend"
	"github.com/mwantia/afs/data"
)

// S3Backend stores objects in an S3 compatible bucket.
//
// Files and links are stored as "<prefix>/<key>", directories as a zero-byte
// marker "<prefix>/<key>/". The stat record of every object is kept as JSON in
// the user metadata of its S3 object.
//
// Renames copy and delete each object and are therefore not atomic.
type S3Backend struct {
	mu sync.RWMutex

	client     *minio.Client
	bucketName string
	prefix     string
}

var _ backend.ObjectStorageBackend = (*S3Backend)(nil)

// S3BackendConfig contains configuration options for the S3 backend
type S3BackendConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Prefix for all object names in the bucket (default: "afs")
	Prefix string
}

func NewS3Backend(config *S3BackendConfig) (*S3Backend, error) {
	if config == nil || config.Endpoint == "" || config.Bucket == "" {
		return nil, fmt.Errorf("%w: endpoint and bucket are required", data.ErrInvalid)
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	prefix := strings.Trim(config.Prefix, "/")
	if prefix == "" {
		prefix = "afs"
	}

	return &S3Backend{
		client:     client,
		bucketName: config.Bucket,
		prefix:     prefix,
	}, nil
}

// Returns the identifier name defined for this backend
func (*S3Backend) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (sb *S3Backend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.client.BucketExists(ctx, sb.bucketName)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("%w: bucket %q", data.ErrNotExist, sb.bucketName)
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *S3Backend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *S3Backend) GetCapabilities() *backend.Capabilities {
	return backend.NewCapabilities(backend.CapabilityObjectStorage)
}
