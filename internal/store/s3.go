package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"recsync/internal/recsync"
)

const snapshotContentType = "text/csv; charset=utf-8"

// GetObjectAPI is the part of the S3 client used to download the snapshot.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Uploader is the part of manager.Uploader used to write the snapshot.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Options locate the snapshot object and the credentials to reach it.
type S3Options struct {
	Bucket string
	Key    string
	Region string

	// Endpoint overrides the S3 endpoint, e.g. for LocalStack or MinIO.
	Endpoint       string
	ForcePathStyle bool

	// AccessKeyID and SecretAccessKey are used as static credentials when
	// set; otherwise the default credential chain applies.
	AccessKeyID     string
	SecretAccessKey string
}

// S3Store keeps the snapshot as one S3 object.
type S3Store struct {
	api      GetObjectAPI
	uploader Uploader
	bucket   string
	key      string
}

// NewS3Store creates an S3Store from opts, loading the AWS configuration.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" || opts.Key == "" {
		return nil, fmt.Errorf("s3 store requires bucket and key")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	return NewS3StoreWithClient(client, manager.NewUploader(client), opts.Bucket, opts.Key), nil
}

// NewS3StoreWithClient creates an S3Store over existing clients.
// This is primarily used for testing with fakes.
func NewS3StoreWithClient(api GetObjectAPI, uploader Uploader, bucket, key string) *S3Store {
	return &S3Store{
		api:      api,
		uploader: uploader,
		bucket:   bucket,
		key:      key,
	}
}

// Get downloads the snapshot object.
func (s *S3Store) Get(ctx context.Context) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", recsync.ErrSnapshotNotFound, s.Location())
		}
		return nil, fmt.Errorf("s3 get %s: %w", s.Location(), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: reading body: %w", s.Location(), err)
	}
	return data, nil
}

// Put overwrites the snapshot object.
func (s *S3Store) Put(ctx context.Context, data []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(snapshotContentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", s.Location(), err)
	}
	return nil
}

func (s *S3Store) Location() string {
	return "s3://" + s.bucket + "/" + s.key
}

// isNotFound reports whether err means the object does not exist.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var _ recsync.SnapshotStore = (*S3Store)(nil)
