package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/danthegoodman1/credittree/utils"
	"github.com/rs/zerolog"
)

type (
	S3Store struct {
		bucket   string
		prefix   string
		client   *s3.S3
		uploader *s3manager.Uploader
	}
)

var ErrNoBucket = utils.PermError("S3_BUCKET_NAME is not set")

func NewS3Store(bucket, prefix string) (*S3Store, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	s3Config := &aws.Config{
		Region:      aws.String(utils.AWS_DEFAULT_REGION),
		Credentials: credentials.NewEnvCredentials(),
	}
	if utils.S3_ENDPOINT != "" {
		s3Config.Endpoint = aws.String(utils.S3_ENDPOINT)
		s3Config.S3ForcePathStyle = aws.Bool(true)
	}

	s3Session, err := session.NewSession(s3Config)
	if err != nil {
		return nil, fmt.Errorf("error making new session: %w", err)
	}

	return &S3Store{
		bucket:   bucket,
		prefix:   prefix,
		client:   s3.New(s3Session),
		uploader: s3manager.NewUploader(s3Session),
	}, nil
}

func (ss *S3Store) key(name string) string {
	return path.Join(ss.prefix, name)
}

func (ss *S3Store) Put(ctx context.Context, name string, b []byte) error {
	logger := zerolog.Ctx(ctx)
	s := time.Now()
	_, err := ss.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(ss.bucket),
		Key:         aws.String(ss.key(name)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("error uploading to s3: %w", err)
	}
	d := time.Since(s)
	logger.Debug().Str("fileName", ss.key(name)).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("uploaded artifact to s3")
	return nil
}

func (ss *S3Store) Get(ctx context.Context, name string) ([]byte, error) {
	out, err := ss.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(ss.key(name)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ss.key(name))
		}
		return nil, fmt.Errorf("error in GetObjectWithContext: %w", err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading s3 body: %w", err)
	}
	return b, nil
}

func (ss *S3Store) Shutdown(context.Context) error {
	return nil
}
