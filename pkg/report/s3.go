package report

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

const contentType = "text/plain; charset=utf-8"

// objectClient is the S3 surface the store consumes. *s3.Client
// satisfies it.
type objectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes run reports as immutable text objects, one per
// invocation, keyed by the invocation timestamp.
type S3Store struct {
	client objectClient
	bucket string
	prefix string
}

func NewS3Store(client objectClient, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Store) Save(ctx context.Context, startedAt time.Time, lines []string) (string, error) {
	key := Key(s.prefix, startedAt)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(Render(startedAt, lines)),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrap(err, "unable to put report object")
	}

	return key, nil
}
