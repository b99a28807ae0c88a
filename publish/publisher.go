// Package publish persists generated posters to S3 and issues presigned
// retrieval URLs.
package publish

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pithecene-io/posters/log"
	"github.com/pithecene-io/posters/types"
)

// ObjectPutter is the subset of the S3 client used for writes.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectPresigner is the subset of the S3 presign client used for handles.
type ObjectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config configures a Publisher.
type Config struct {
	// Bucket is the poster bucket (required).
	Bucket string
	// ContentType is stored with each object (default image/png).
	ContentType string
	// Now overrides the clock used for keys (for testing).
	Now func() time.Time
}

// Publisher writes artifacts and presigns retrieval URLs.
type Publisher struct {
	putter    ObjectPutter
	presigner ObjectPresigner
	config    Config
}

// NewPublisher creates a Publisher.
func NewPublisher(putter ObjectPutter, presigner ObjectPresigner, cfg Config) (*Publisher, error) {
	if putter == nil || presigner == nil {
		return nil, errors.New("publish: putter and presigner are required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("publish: bucket is required")
	}
	if cfg.ContentType == "" {
		cfg.ContentType = types.DefaultArtifactContentType
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Publisher{putter: putter, presigner: presigner, config: cfg}, nil
}

// NewS3Publisher creates a Publisher from an S3 client.
func NewS3Publisher(client *s3.Client, cfg Config) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("publish: S3 client is required")
	}
	return NewPublisher(client, s3.NewPresignClient(client), cfg)
}

// Bucket returns the configured bucket.
func (p *Publisher) Bucket() string {
	return p.config.Bucket
}

// Publish stores data under a timestamped key and presigns a GET for it.
//
// Keys have second precision: a second artifact published within the same
// second overwrites the first. A failed write skips presigning.
func (p *Publisher) Publish(ctx context.Context, data []byte, logger *log.Logger) (*types.PublishedArtifact, error) {
	artifact := &types.Artifact{
		Data:        data,
		ContentType: p.config.ContentType,
		CreatedAt:   p.config.Now(),
	}
	artifact.Key = types.ArtifactKey(artifact.CreatedAt)

	_, err := p.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.config.Bucket),
		Key:           aws.String(artifact.Key),
		Body:          bytes.NewReader(artifact.Data),
		ContentType:   aws.String(artifact.ContentType),
		ContentLength: aws.Int64(int64(len(artifact.Data))),
	})
	if err != nil {
		wrapped := wrapStorageError(err, "put", artifact.Key)
		logger.Error("artifact write failed", map[string]any{
			"bucket":      p.config.Bucket,
			"key":         artifact.Key,
			"error":       err.Error(),
			"error_class": ClassName(wrapped),
		})
		return nil, types.PublishError("put", "S3 error: "+err.Error(), wrapped)
	}

	req, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.config.Bucket),
		Key:    aws.String(artifact.Key),
	}, s3.WithPresignExpires(types.RetrievalExpiry))
	if err != nil {
		wrapped := wrapStorageError(err, "presign", artifact.Key)
		logger.Error("presign failed", map[string]any{
			"bucket":      p.config.Bucket,
			"key":         artifact.Key,
			"error":       err.Error(),
			"error_class": ClassName(wrapped),
		})
		return nil, types.PublishError("presign", "S3 error: "+err.Error(), wrapped)
	}

	logger.Info("presigned URL generated", map[string]any{
		"bucket":     p.config.Bucket,
		"key":        artifact.Key,
		"expires_in": types.RetrievalExpiry.String(),
	})

	return &types.PublishedArtifact{
		Bucket:    p.config.Bucket,
		Key:       artifact.Key,
		URL:       req.URL,
		Expiry:    types.RetrievalExpiry,
		SizeBytes: int64(len(artifact.Data)),
		CreatedAt: artifact.CreatedAt,
	}, nil
}
