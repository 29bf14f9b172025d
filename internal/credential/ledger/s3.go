package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"eduhub/internal/platform/objectstore"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Store keeps blobs as objects in a bucket. Object ETags are the blob
// version: Save sends If-Match, or If-None-Match: * for a new object, so two
// replicas appending at once cannot lose a claim.
type S3Store struct {
	client *objectstore.Client
}

// NewS3Store wraps an object store client.
func NewS3Store(client *objectstore.Client) *S3Store {
	return &S3Store{client: client}
}

// NewS3 is a Blob ledger persisted in the client's bucket.
func NewS3(client *objectstore.Client, key string, logger *slog.Logger) *Blob {
	return NewBlob(NewS3Store(client), key, logger)
}

func (s *S3Store) Load(ctx context.Context, name string) ([]byte, string, error) {
	out, err := s.client.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.client.Bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) || httpStatus(err) == http.StatusNotFound {
			return nil, "", ErrBlobNotFound
		}
		return nil, "", fmt.Errorf("get object %s: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", name, err)
	}
	return data, aws.ToString(out.ETag), nil
}

func (s *S3Store) Save(ctx context.Context, name string, data []byte, version string) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.client.Bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if version != "" {
		in.IfMatch = aws.String(version)
	} else {
		in.IfNoneMatch = aws.String("*")
	}

	if _, err := s.client.S3.PutObject(ctx, in); err != nil {
		if isPreconditionFailed(err) {
			return ErrVersionConflict
		}
		return fmt.Errorf("put object %s: %w", name, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.S3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.client.Bucket),
		Key:    aws.String(name),
	})
	if err != nil && httpStatus(err) != http.StatusNotFound {
		return fmt.Errorf("delete object %s: %w", name, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	switch httpStatus(err) {
	case http.StatusPreconditionFailed, http.StatusConflict:
		return true
	}
	return false
}

func httpStatus(err error) int {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
