package artifact

import (
	"context"
	"fmt"

	"github.com/danthegoodman1/credittree/gologger"
	"github.com/danthegoodman1/credittree/utils"
)

var (
	logger = gologger.NewLogger()

	// ErrNotFound is permanent so retries stop on it.
	ErrNotFound = utils.PermError("artifact not found")
)

type (
	// Store is a flat namespace of named blobs. Implementations must return
	// an error wrapping ErrNotFound for missing names.
	Store interface {
		Put(ctx context.Context, name string, b []byte) error
		Get(ctx context.Context, name string) ([]byte, error)
		Shutdown(ctx context.Context) error
	}
)

// NewStoreFromEnv picks the store named by ARTIFACT_STORE.
func NewStoreFromEnv(ctx context.Context) (Store, error) {
	switch utils.ARTIFACT_STORE {
	case "disk":
		return NewDiskStore(utils.ARTIFACT_DIR)
	case "s3":
		return NewS3Store(utils.S3_BUCKET_NAME, utils.ARTIFACT_PREFIX)
	case "minio":
		return NewMinioStore(ctx, utils.MINIO_ENDPOINT, utils.MINIO_BUCKET, utils.ARTIFACT_PREFIX)
	default:
		return nil, utils.PermError(fmt.Sprintf("unknown ARTIFACT_STORE %q", utils.ARTIFACT_STORE))
	}
}
