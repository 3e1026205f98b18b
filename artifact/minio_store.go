package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/danthegoodman1/credittree/utils"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

type (
	MinioStore struct {
		bucket string
		prefix string
		client *minio.Client
	}
)

func NewMinioStore(ctx context.Context, endpoint, bucket, prefix string) (*MinioStore, error) {
	if endpoint == "" {
		return nil, utils.PermError("MINIO_ENDPOINT is not set")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(utils.MINIO_ACCESS_KEY, utils.MINIO_SECRET_KEY, ""),
		Secure: utils.MINIO_USE_SSL,
	})
	if err != nil {
		return nil, fmt.Errorf("error in minio.New: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("error in BucketExists: %w", err)
	}
	if !exists {
		zerolog.Ctx(ctx).Info().Str("bucket", bucket).Msg("creating artifact bucket")
		if err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("error in MakeBucket: %w", err)
		}
	}

	return &MinioStore{bucket: bucket, prefix: prefix, client: client}, nil
}

func (ms *MinioStore) key(name string) string {
	return path.Join(ms.prefix, name)
}

func (ms *MinioStore) Put(ctx context.Context, name string, b []byte) error {
	_, err := ms.client.PutObject(ctx, ms.bucket, ms.key(name), bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("error in PutObject: %w", err)
	}
	return nil
}

func (ms *MinioStore) Get(ctx context.Context, name string) ([]byte, error) {
	obj, err := ms.client.GetObject(ctx, ms.bucket, ms.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, ms.translate(name, err)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, ms.translate(name, err)
	}
	return b, nil
}

func (ms *MinioStore) translate(name string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrNotFound, ms.key(name))
	}
	return fmt.Errorf("error reading %s from minio: %w", ms.key(name), err)
}

func (ms *MinioStore) Shutdown(context.Context) error {
	return nil
}
