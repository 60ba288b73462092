package minioutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tsitoo/common/atomicfile"
	"github.com/tsitoo/common/u"
)

// names of .env keys read by ConfigFromEnv
const (
	EnvAccess   = "S3_ACCESS"
	EnvSecret   = "S3_SECRET"
	EnvBucket   = "S3_BUCKET"
	EnvEndpoint = "S3_ENDPOINT"
	EnvRegion   = "S3_REGION"
	EnvInsecure = "S3_INSECURE"
)

type Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https, for local minio servers
	Insecure     bool
	RequestTrace io.Writer
}

func (c *Config) validate() error {
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return errors.New("must provide access, secret, bucket and endpoint in config")
	}
	return nil
}

// ConfigFromEnv creates config from values parsed from .env file
// (see u.ReadEnvFile)
func ConfigFromEnv(env map[string]string) (*Config, error) {
	c := &Config{
		Access:   env[EnvAccess],
		Secret:   env[EnvSecret],
		Bucket:   env[EnvBucket],
		Endpoint: env[EnvEndpoint],
		Region:   env[EnvRegion],
		Insecure: env[EnvInsecure] == "true",
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%w (keys: %s, %s, %s, %s)", err, EnvAccess, EnvSecret, EnvBucket, EnvEndpoint)
	}
	return c, nil
}

type Client struct {
	Client *minio.Client
	Bucket string
}

// New creates a client and checks that the bucket exists
func New(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("must provide config")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	mc, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Access, config.Secret, ""),
		Region: config.Region,
		Secure: !config.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if config.RequestTrace != nil {
		mc.TraceOn(config.RequestTrace)
	}
	found, err := mc.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", config.Bucket)
	}
	return &Client{
		Client: mc,
		Bucket: config.Bucket,
	}, nil
}

// Exists returns true if remotePath exists in the bucket
func (c *Client) Exists(ctx context.Context, remotePath string) bool {
	_, err := c.Client.StatObject(ctx, c.Bucket, remotePath, minio.StatObjectOptions{})
	return err == nil
}

// UploadFile uploads a local file, e.g. a snapshot, as remotePath
func (c *Client) UploadFile(ctx context.Context, remotePath string, path string) (minio.UploadInfo, error) {
	opts := minio.PutObjectOptions{
		ContentType: u.MimeTypeFromFileName(remotePath),
	}
	return c.Client.FPutObject(ctx, c.Bucket, remotePath, path, opts)
}

// DownloadFileAtomically downloads remotePath to dstPath.
// dstPath is only replaced if the whole download succeeds.
func (c *Client) DownloadFileAtomically(ctx context.Context, dstPath string, remotePath string) error {
	obj, err := c.Client.GetObject(ctx, c.Bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer u.CloseNoError(obj)

	// ensure there's a dir for destination file
	err = os.MkdirAll(filepath.Dir(dstPath), 0755)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(dstPath, func(w io.Writer) error {
		_, err := io.Copy(w, obj)
		return err
	})
}

// List returns names of objects with a given prefix
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}
	var res []string
	for oi := range c.Client.ListObjects(ctx, c.Bucket, opts) {
		if oi.Err != nil {
			return nil, oi.Err
		}
		res = append(res, oi.Key)
	}
	return res, nil
}

func (c *Client) Remove(ctx context.Context, remotePath string) error {
	return c.Client.RemoveObject(ctx, c.Bucket, remotePath, minio.RemoveObjectOptions{})
}
