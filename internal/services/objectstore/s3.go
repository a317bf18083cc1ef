package objectstore

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"reelsync/internal/config"
	"reelsync/internal/services"
)

// S3 implements Store against an S3-compatible bucket.
type S3 struct {
	bucket   string
	client   *s3.S3
	uploader *s3manager.Uploader
}

// NewS3 builds an S3 store from configuration. Credentials fall back to the
// SDK default chain when the config carries none.
func NewS3(cfg *config.Config) (*S3, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.ObjectStore.Region)}
	if cfg.ObjectStore.AccessKey != "" && cfg.ObjectStore.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.ObjectStore.AccessKey, cfg.ObjectStore.SecretKey, "")
	}
	if cfg.ObjectStore.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.ObjectStore.Endpoint)
	}
	if cfg.ObjectStore.UsePathStyle {
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "new session", "", err)
	}

	return &S3{
		bucket:   cfg.ObjectStore.Bucket,
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}, nil
}

// Put streams body to key. Uses the s3manager uploader so large segments are
// sent multipart without buffering the whole object in memory.
func (s *S3) Put(ctx context.Context, key string, body io.Reader, contentType, cacheControl string) error {
	input := &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if cacheControl != "" {
		input.CacheControl = aws.String(cacheControl)
	}
	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return classify(err, "put "+key)
	}
	return nil
}

// List returns every object under prefix, following pagination.
func (s *S3) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			objects = append(objects, Object{
				Key:  aws.StringValue(obj.Key),
				Size: aws.Int64Value(obj.Size),
			})
		}
		return true
	})
	if err != nil {
		return nil, classify(err, "list "+prefix)
	}
	return objects, nil
}

// Head reports whether key exists.
func (s *S3) Head(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var reqErr awserr.RequestFailure
		if errors.As(err, &reqErr) && (reqErr.StatusCode() == 404 || reqErr.Code() == "NotFound") {
			return false, nil
		}
		return false, classify(err, "head "+key)
	}
	return true, nil
}

// classify maps SDK failures onto the shared taxonomy so the orchestrator can
// distinguish credential expiry from ordinary transient faults.
func classify(err error, operation string) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case "ExpiredToken", "ExpiredTokenException", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return services.Wrap(services.ErrCredentialExpired, "objectstore", operation, "", err)
		case request.CanceledErrorCode:
			return services.Wrap(services.ErrTimeout, "objectstore", operation, "", err)
		}
	}
	return services.Wrap(services.ErrTransient, "objectstore", operation, "", err)
}

var _ Store = (*S3)(nil)
