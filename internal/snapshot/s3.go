package snapshot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/netsuite-kpi/internal/config"
)

// ObjectPutter is the part of the S3 API the sink needs.
// *s3.Client satisfies it.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink mirrors the snapshot to s3://Bucket/Key.
type S3Sink struct {
	client ObjectPutter
	bucket string
	key    string
}

// NewS3Sink wraps an existing client.
func NewS3Sink(client ObjectPutter, bucket, key string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, key: key}
}

// LoadAWSConfig resolves AWS settings for the snapshot and history targets.
// Static keys win over a named profile; otherwise the default chain is used.
func LoadAWSConfig(ctx context.Context, cfg config.SnapshotConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}

	switch {
	case cfg.AccessKey != "" && cfg.SecretKey != "":
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	case cfg.GetAWSProfile() != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.GetAWSProfile()))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return awsCfg, nil
}

// NewS3SinkFromConfig builds a sink with a client from the given AWS config.
func NewS3SinkFromConfig(awsCfg aws.Config, cfg config.SnapshotConfig) *S3Sink {
	return NewS3Sink(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Key)
}

// Name implements Sink.
func (s *S3Sink) Name() string { return fmt.Sprintf("s3://%s/%s", s.bucket, s.key) }

// Put implements Sink.
func (s *S3Sink) Put(ctx context.Context, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("no-cache"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}
	return nil
}
