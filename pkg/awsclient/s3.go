package awsclient

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"corral/internal/deployment"
)

// BucketClient implements deployment.BucketStore against one S3 bucket.
type BucketClient struct {
	api    *s3.Client
	bucket string
}

func NewBucketClient(cfg aws.Config, bucket string) *BucketClient {
	return &BucketClient{api: s3.NewFromConfig(cfg), bucket: bucket}
}

func (c *BucketClient) Upload(ctx context.Context, key string, body io.Reader, size int64) (*deployment.BucketObject, error) {
	out, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("upload s3://%s/%s: %w", c.bucket, key, err)
	}
	return &deployment.BucketObject{
		Bucket:    c.bucket,
		Key:       key,
		VersionID: aws.ToString(out.VersionId),
	}, nil
}

func (c *BucketClient) Delete(ctx context.Context, object deployment.BucketObject) error {
	request := &s3.DeleteObjectInput{
		Bucket: aws.String(object.Bucket),
		Key:    aws.String(object.Key),
	}
	if object.VersionID != "" {
		request.VersionId = aws.String(object.VersionID)
	}
	if _, err := c.api.DeleteObject(ctx, request); err != nil {
		return fmt.Errorf("delete s3://%s/%s: %w", object.Bucket, object.Key, err)
	}
	return nil
}
