package pgraph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store implements ObjectStore on an S3 bucket, carrying the lock in the
// object's tag set.
type S3Store struct {
	bucket string
	client *s3.Client
}

// NewS3Store builds an S3-backed store for the given bucket.
func NewS3Store(ctx context.Context, bucket, region, profile string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 store requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &S3Store{bucket: bucket, client: s3.NewFromConfig(cfg)}, nil
}

func (s *S3Store) GetObject(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	return body, nil
}

func (s *S3Store) PutObject(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to write s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Store) GetTag(ctx context.Context, key, name string) (string, bool, error) {
	tags, err := s.tagSet(ctx, key)
	if err != nil {
		return "", false, err
	}
	for _, t := range tags {
		if aws.ToString(t.Key) == name {
			return aws.ToString(t.Value), true, nil
		}
	}
	return "", false, nil
}

func (s *S3Store) PutTag(ctx context.Context, key, name, value string) error {
	tags, err := s.tagSet(ctx, key)
	if err != nil {
		return err
	}
	out := make([]s3types.Tag, 0, len(tags)+1)
	for _, t := range tags {
		if aws.ToString(t.Key) != name {
			out = append(out, t)
		}
	}
	out = append(out, s3types.Tag{Key: aws.String(name), Value: aws.String(value)})
	return s.writeTagSet(ctx, key, out)
}

func (s *S3Store) DeleteTag(ctx context.Context, key, name string) error {
	tags, err := s.tagSet(ctx, key)
	if err != nil {
		return err
	}
	out := make([]s3types.Tag, 0, len(tags))
	for _, t := range tags {
		if aws.ToString(t.Key) != name {
			out = append(out, t)
		}
	}
	return s.writeTagSet(ctx, key, out)
}

func (s *S3Store) tagSet(ctx context.Context, key string) ([]s3types.Tag, error) {
	result, err := s.client.GetObjectTagging(ctx, &s3.GetObjectTaggingInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read tags of s3://%s/%s: %w", s.bucket, key, err)
	}
	return result.TagSet, nil
}

func (s *S3Store) writeTagSet(ctx context.Context, key string, tags []s3types.Tag) error {
	_, err := s.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket:  aws.String(s.bucket),
		Key:     aws.String(key),
		Tagging: &s3types.Tagging{TagSet: tags},
	})
	if err != nil {
		return fmt.Errorf("failed to write tags of s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
