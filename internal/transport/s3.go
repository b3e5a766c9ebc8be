// SPDX-License-Identifier: MPL-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"
)

// ErrUpload is matched by every UploadError.
var ErrUpload = errors.New("upload failed")

type (
	// ObjectPutter is the part of the S3 client the uploader needs.
	ObjectPutter interface {
		PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	}

	// S3Options configures the S3 client.
	S3Options struct {
		Region string
		// Endpoint selects an S3-compatible store; empty means AWS.
		Endpoint  string
		PathStyle bool
		// AccessKey and SecretKey override the default credential chain
		// when both are set.
		AccessKey string
		SecretKey string
	}

	// UploaderOptions configures an Uploader.
	UploaderOptions struct {
		Bucket string
		// DryRun logs each object instead of sending it.
		DryRun bool
		Logger *log.Logger
		// Progress is called after each object.
		Progress func(obj Object, size int64)
	}

	// Stats summarizes an upload.
	Stats struct {
		Objects int
		Bytes   int64
	}

	// UploadError reports the object that could not be uploaded.
	UploadError struct {
		Bucket string
		Key    string
		Source string
		Err    error
	}

	// Uploader sends planned objects to a bucket, one at a time and in plan
	// order.
	Uploader struct {
		client ObjectPutter
		opts   UploaderOptions
		logger *log.Logger
	}
)

// Error implements the error interface.
func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s to s3://%s/%s: %v", e.Source, e.Bucket, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *UploadError) Unwrap() error { return e.Err }

// Is reports ErrUpload as part of the chain.
func (e *UploadError) Is(target error) bool { return target == ErrUpload }

// NewS3Client creates an S3 client from opts.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	}), nil
}

// NewUploader creates an Uploader. client may be nil in dry-run mode.
func NewUploader(client ObjectPutter, opts UploaderOptions) *Uploader {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Uploader{client: client, opts: opts, logger: logger}
}

// Upload sends every object in order and stops at the first failure.
func (u *Uploader) Upload(ctx context.Context, objects []Object) (Stats, error) {
	var stats Stats
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		size, err := u.put(ctx, obj)
		if err != nil {
			return stats, &UploadError{Bucket: u.opts.Bucket, Key: obj.Key, Source: obj.Source, Err: err}
		}
		stats.Objects++
		stats.Bytes += size
		if u.opts.Progress != nil {
			u.opts.Progress(obj, size)
		}
	}
	return stats, nil
}

func (u *Uploader) put(ctx context.Context, obj Object) (int64, error) {
	f, err := os.Open(obj.Source)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	if u.opts.DryRun {
		u.logger.Info("dry run: would upload", "source", obj.Source, "bucket", u.opts.Bucket, "key", obj.Key)
		return info.Size(), nil
	}

	u.logger.Debug("uploading", "source", obj.Source, "bucket", u.opts.Bucket, "key", obj.Key)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.opts.Bucket),
		Key:           aws.String(obj.Key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
