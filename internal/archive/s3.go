package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"babytrack-go/internal/config"
	"babytrack-go/internal/domain/export"
	"babytrack-go/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultPresignTTL = 15 * time.Minute

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 stores export snapshots in a private bucket and hands out presigned
// download links.
type S3 struct {
	client    objectPutter
	presigner objectPresigner
	bucket    string
	ttl       time.Duration
	log       logger.Logger
	now       func() time.Time
}

// NewS3 returns nil when no bucket is configured.
func NewS3(ctx context.Context, cfg config.ExportConfig, log logger.Logger) (*S3, error) {
	if cfg.S3Bucket == "" {
		return nil, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Info("archive: S3 export archive enabled", "bucket", cfg.S3Bucket, "region", awsCfg.Region)
	return newS3(client, s3.NewPresignClient(client), cfg, log), nil
}

func newS3(client objectPutter, presigner objectPresigner, cfg config.ExportConfig, log logger.Logger) *S3 {
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	return &S3{
		client:    client,
		presigner: presigner,
		bucket:    cfg.S3Bucket,
		ttl:       ttl,
		log:       log.With("component", "archive"),
		now:       time.Now,
	}
}

func (a *S3) Archive(ctx context.Context, key string, body []byte) (*export.Archived, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	issued := a.now()
	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(a.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", key, err)
	}

	a.log.Info("archive.put: snapshot stored", "key", key, "bytes", len(body))
	return &export.Archived{
		Key:       key,
		URL:       req.URL,
		ExpiresAt: issued.Add(a.ttl).UTC(),
	}, nil
}
