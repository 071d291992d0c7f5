package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"storefront-service/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxScreenshotBytes caps a single payment screenshot.
const MaxScreenshotBytes = 5 << 20

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// AllowedType reports whether contentType may be uploaded.
func AllowedType(contentType string) bool {
	_, ok := allowedTypes[contentType]
	return ok
}

// S3Uploader stores payment screenshots in an S3 compatible bucket.
type S3Uploader struct {
	client     *s3.Client
	bucket     string
	publicBase string
	logger     *zap.Logger
	now        func() time.Time
}

// Options configures an S3Uploader. A non-empty Endpoint switches to
// path-style addressing for S3 compatible hosts.
type Options struct {
	Bucket     string
	Region     string
	Endpoint   string
	PublicBase string
	Timeout    time.Duration
}

// NewS3Uploader loads AWS credentials from the default chain.
func NewS3Uploader(ctx context.Context, opts Options) (*S3Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return newS3Uploader(opts, awsCfg), nil
}

func newS3Uploader(opts Options, awsCfg aws.Config) *S3Uploader {
	endpoint := strings.TrimRight(opts.Endpoint, "/")
	if opts.Timeout > 0 {
		awsCfg.HTTPClient = awshttp.NewBuildableClient().WithTimeout(opts.Timeout)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := strings.TrimRight(opts.PublicBase, "/")
	if publicBase == "" {
		if endpoint != "" {
			publicBase = endpoint + "/" + opts.Bucket
		} else {
			publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, awsCfg.Region)
		}
	}

	return &S3Uploader{
		client:     client,
		bucket:     opts.Bucket,
		publicBase: publicBase,
		logger:     util.Named("media"),
		now:        time.Now,
	}
}

// Upload stores data under prefix and returns its public URL.
func (u *S3Uploader) Upload(ctx context.Context, prefix, contentType string, data []byte) (string, error) {
	ctx, span := util.StartSpan(ctx, "S3Uploader.Upload")
	defer span.End()

	start := u.now()
	defer func() {
		util.ScreenshotUploadLatency.Observe(time.Since(start).Seconds())
	}()

	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	if len(data) == 0 || len(data) > MaxScreenshotBytes {
		return "", fmt.Errorf("file size %d outside allowed range", len(data))
	}

	key := path.Join(prefix, start.UTC().Format("2006/01"), uuid.NewString()+ext)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		util.RecordError(span, err)
		u.logger.Error("Screenshot upload failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to put object: %w", err)
	}

	u.logger.Info("Screenshot uploaded", zap.String("key", key), zap.Int("bytes", len(data)))
	return u.publicBase + "/" + key, nil
}
