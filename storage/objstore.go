package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectStore publishes run artifacts (charts, parquet archives) to an
// S3-compatible bucket. Publishing is optional; upload failures are
// reported to the caller and downgraded to warnings by the pipeline.
type ObjectStore struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewS3 creates a client for an AWS S3 bucket using the default
// credential chain.
func NewS3(ctx context.Context, region, bucket string) (*ObjectStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &ObjectStore{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		endpoint: fmt.Sprintf("https://s3.%s.amazonaws.com", region),
	}, nil
}

// NewR2 creates a client for a Cloudflare R2 bucket with static
// credentials.
func NewR2(ctx context.Context, accountID, accessKeyID, secretAccessKey, bucket string) (*ObjectStore, error) {
	// R2 endpoint format: https://<ACCOUNT_ID>.r2.cloudflarestorage.com
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)

	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{URL: endpoint}, nil
	})

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithEndpointResolverWithOptions(customResolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
		awsconfig.WithRegion("auto"), // R2 uses "auto" region
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &ObjectStore{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		endpoint: endpoint,
	}, nil
}

// Upload writes data to the bucket under key.
func (st *ObjectStore) Upload(ctx context.Context, key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}

	if _, err := st.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// UploadFile uploads a local file, keyed by prefix plus its base name.
func (st *ObjectStore) UploadFile(ctx context.Context, prefix, filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	key := path.Join(prefix, filepath.Base(filePath))
	if err := st.Upload(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// UploadFileIfAbsent uploads a local file unless the bucket already
// holds an object under its key, so re-running a batch with the same
// prefix does not re-transfer artifacts. Reports the key and whether an
// upload happened.
func (st *ObjectStore) UploadFileIfAbsent(ctx context.Context, prefix, filePath string) (string, bool, error) {
	key := path.Join(prefix, filepath.Base(filePath))
	exists, err := st.Exists(ctx, key)
	if err != nil {
		return "", false, err
	}
	if exists {
		return key, false, nil
	}
	if _, err := st.UploadFile(ctx, prefix, filePath); err != nil {
		return "", false, err
	}
	return key, true, nil
}

// Exists checks whether an object exists in the bucket.
func (st *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
	}

	if _, err := st.client.HeadObject(ctx, input); err != nil {
		var notFoundErr *types.NotFound
		if errors.As(err, &notFoundErr) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// Endpoint returns the storage endpoint in use.
func (st *ObjectStore) Endpoint() string {
	return st.endpoint
}
