package filesystem

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Filesystem stores blobs in an S3 bucket. Server-side only.
type S3Filesystem struct {
	Bucket string
	client *s3.Client
}

func NewS3Filesystem(ctx context.Context, bucket string) (*S3Filesystem, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &S3Filesystem{
		Bucket: bucket,
		client: s3.NewFromConfig(cfg),
	}, nil
}

func (fs *S3Filesystem) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	_, err := fs.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(fs.Bucket),
		Key:    aws.String(name),
		Body:   r,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s to bucket %s: %w", name, fs.Bucket, err)
	}
	return name, nil
}

func (fs *S3Filesystem) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	resp, err := fs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(fs.Bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s from bucket %s: %w", ref, fs.Bucket, err)
	}
	return resp.Body, nil
}

// List returns every blob key in the bucket.
func (fs *S3Filesystem) List(ctx context.Context) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(fs.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(fs.Bucket),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s: %w", fs.Bucket, err)
		}

		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}

	return keys, nil
}
