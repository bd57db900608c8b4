package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/ternarybob/arbor"

	"jobmate/scraper-service/internal/model"
)

// S3Config holds everything NewS3Store needs.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the AWS endpoint (MinIO, LocalStack). Path-style
	// addressing is used when set.
	Endpoint string
	// MaxAttempts bounds the SDK retryer per call. Zero keeps the SDK default.
	MaxAttempts int
	// TempDir is where CSV files are staged before upload. Empty means os.TempDir.
	TempDir string
}

// S3Store stores job tables in an S3 bucket.
type S3Store struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
	tempDir  string
	logger   arbor.ILogger
}

// NewS3Store builds a client with static credentials. Missing credentials,
// region or bucket are a construction error.
func NewS3Store(cfg S3Config, logger arbor.ILogger) (*S3Store, error) {
	switch {
	case cfg.AccessKeyID == "" || cfg.SecretAccessKey == "":
		return nil, errors.New("s3: access key id and secret access key are required")
	case cfg.Region == "":
		return nil, errors.New("s3: region is required")
	case cfg.Bucket == "":
		return nil, errors.New("s3: bucket is required")
	}

	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	}
	if cfg.MaxAttempts > 0 {
		opts.RetryMaxAttempts = cfg.MaxAttempts
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	return &S3Store{
		client:   s3.New(opts),
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		tempDir:  cfg.TempDir,
		logger:   logger,
	}, nil
}

// Exists reports whether an object is stored under key. A missing object is
// (false, nil); any other failure that survives the SDK retryer is returned.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(key)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, &Error{Op: "head", Key: key, Err: err}
}

// Upload writes batch to a temporary CSV file and puts it under key. The
// temporary file is removed on every path.
func (s *S3Store) Upload(ctx context.Context, batch model.JobBatch, key string) (string, error) {
	f, err := os.CreateTemp(s.tempDir, "jobs-*.csv")
	if err != nil {
		return "", &Error{Op: "stage", Key: key, Err: err}
	}
	defer func() {
		_ = f.Close()
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn().Err(rmErr).Str("file", f.Name()).Msg("Failed to remove staged CSV")
		}
	}()

	if err := batch.WriteCSV(f); err != nil {
		return "", &Error{Op: "stage", Key: key, Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", &Error{Op: "stage", Key: key, Err: err}
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(key)),
		Body:        f,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", &Error{Op: "put", Key: key, Err: err}
	}

	return s.publicURL(key), nil
}

func (s *S3Store) publicURL(key string) string {
	path := escapeKey(objectKey(key))
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, path)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, path)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var ae smithy.APIError
	if errors.As(err, &ae) && (ae.ErrorCode() == "NotFound" || ae.ErrorCode() == "NoSuchKey") {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
