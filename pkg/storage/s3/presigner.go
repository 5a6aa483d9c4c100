// Package s3 resolves blob keys to presigned S3 GET URLs.
package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quickmed/quickmed-backend/pkg/config"
	"github.com/quickmed/quickmed-backend/pkg/logger"
	"github.com/quickmed/quickmed-backend/pkg/storage"
)

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error)
}

// PresignedRequest is the subset of the SDK's presigned request we use.
type PresignedRequest struct {
	URL string
}

type headAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Resolver presigns reads against a single bucket.
type Resolver struct {
	bucket  string
	expiry  time.Duration
	presign presignAPI
	head    headAPI
}

// New loads the default AWS credential chain and builds a presigning resolver.
func New(ctx context.Context, cfg config.StorageConfig, awsCfg config.AWSConfig, logg *logger.Logger) (*Resolver, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	sdkCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(awsCfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if awsCfg.Endpoint != "" {
			o.BaseEndpoint = sdkaws.String(awsCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"bucket": cfg.Bucket, "region": awsCfg.Region}), "s3 resolver ready")
	}

	return &Resolver{
		bucket:  cfg.Bucket,
		expiry:  cfg.DownloadExpiry,
		presign: sdkPresigner{client: s3.NewPresignClient(client)},
		head:    client,
	}, nil
}

type sdkPresigner struct {
	client *s3.PresignClient
}

func (p sdkPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedRequest, error) {
	req, err := p.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &PresignedRequest{URL: req.URL}, nil
}

var _ storage.Resolver = (*Resolver)(nil)

// ReadURL returns a time-limited GET URL for key.
func (r *Resolver) ReadURL(ctx context.Context, key string) (string, error) {
	clean, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(clean, "https://") || strings.HasPrefix(clean, "http://") {
		return clean, nil
	}
	expiry := r.expiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: sdkaws.String(r.bucket),
		Key:    sdkaws.String(clean),
	}, func(o *s3.PresignOptions) {
		o.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", clean, err)
	}
	return req.URL, nil
}

// Ping checks the bucket is reachable with the loaded credentials.
func (r *Resolver) Ping(ctx context.Context) error {
	if r == nil || r.head == nil {
		return errors.New("s3 resolver not initialized")
	}
	_, err := r.head.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: sdkaws.String(r.bucket)})
	return err
}
