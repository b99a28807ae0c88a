// Package awsx builds the AWS service clients shared by the pipeline.
//
// Clients are created lazily, once per process, and are safe to reuse
// across invocations: they carry no request state.
package awsx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for the S3 client.
type S3Config struct {
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. MinIO, LocalStack). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	UsePathStyle bool
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(path string) (bucket, prefix string) {
	parts := strings.SplitN(path, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}

// Clients lazily builds and caches AWS clients.
// Uses the AWS SDK default credential chain (env vars, shared config, IAM role).
type Clients struct {
	s3cfg         S3Config
	bedrockRegion string
	loadOptions   []func(*config.LoadOptions) error

	cfgOnce sync.Once
	awsCfg  aws.Config
	cfgErr  error

	s3Once sync.Once
	s3     *s3.Client

	bedrockOnce sync.Once
	bedrock     *bedrockruntime.Client
}

// NewClients creates a lazy client set. Nothing is loaded until the first
// client is requested.
func NewClients(s3cfg S3Config, bedrockRegion string, opts ...func(*config.LoadOptions) error) *Clients {
	return &Clients{
		s3cfg:         s3cfg,
		bedrockRegion: bedrockRegion,
		loadOptions:   opts,
	}
}

// Config returns the shared AWS config, loading it on first use.
func (c *Clients) Config(ctx context.Context) (aws.Config, error) {
	c.cfgOnce.Do(func() {
		cfg, err := config.LoadDefaultConfig(ctx, c.loadOptions...)
		if err != nil {
			c.cfgErr = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		c.awsCfg = cfg
	})
	return c.awsCfg, c.cfgErr
}

// S3 returns the S3 client, creating it on first use.
func (c *Clients) S3(ctx context.Context) (*s3.Client, error) {
	cfg, err := c.Config(ctx)
	if err != nil {
		return nil, err
	}
	c.s3Once.Do(func() {
		c.s3 = s3.NewFromConfig(cfg, S3Options(c.s3cfg)...)
	})
	return c.s3, nil
}

// Bedrock returns the Bedrock Runtime client, creating it on first use.
func (c *Clients) Bedrock(ctx context.Context) (*bedrockruntime.Client, error) {
	cfg, err := c.Config(ctx)
	if err != nil {
		return nil, err
	}
	c.bedrockOnce.Do(func() {
		var opts []func(*bedrockruntime.Options)
		if c.bedrockRegion != "" {
			region := c.bedrockRegion
			opts = append(opts, func(o *bedrockruntime.Options) {
				o.Region = region
			})
		}
		c.bedrock = bedrockruntime.NewFromConfig(cfg, opts...)
	})
	return c.bedrock, nil
}

// S3Options returns client options for region, endpoint and path-style
// overrides.
func S3Options(s3cfg S3Config) []func(*s3.Options) {
	var opts []func(*s3.Options)
	if s3cfg.Region != "" {
		region := s3cfg.Region
		opts = append(opts, func(o *s3.Options) {
			o.Region = region
		})
	}
	if s3cfg.Endpoint != "" {
		endpoint := s3cfg.Endpoint
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if s3cfg.UsePathStyle {
		opts = append(opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return opts
}

// NewS3Client builds a standalone S3 client, for components that keep
// their own region (e.g. a ledger in another region).
func NewS3Client(ctx context.Context, s3cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if s3cfg.Region != "" {
		opts = append(opts, config.WithRegion(s3cfg.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg, S3Options(s3cfg)...), nil
}

// ErrNoRegion is returned by RequireRegion when no region is resolvable.
var ErrNoRegion = errors.New("no AWS region configured (set AWS_REGION or storage.region)")

// RequireRegion checks that cfg resolved a region.
func RequireRegion(cfg aws.Config) error {
	if cfg.Region == "" {
		return ErrNoRegion
	}
	return nil
}
