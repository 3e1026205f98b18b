package utils

import "os"

var (
	HTTP_PORT = GetEnvOrDefault("HTTP_PORT", "8080")

	// disk, s3, or minio
	ARTIFACT_STORE  = GetEnvOrDefault("ARTIFACT_STORE", "disk")
	ARTIFACT_DIR    = GetEnvOrDefault("ARTIFACT_DIR", "models")
	ARTIFACT_PREFIX = GetEnvOrDefault("ARTIFACT_PREFIX", "credittree")

	TRAIN_CSV     = GetEnvOrDefault("TRAIN_CSV", "data/german_credit_data.csv")
	TARGET_COLUMN = GetEnvOrDefault("TARGET_COLUMN", "status")
	TEST_RATIO    = GetEnvOrDefault("TEST_RATIO", "0.2")
	SEED          = GetEnvOrDefaultInt("SEED", 42)
	MAX_DEPTH     = GetEnvOrDefaultInt("MAX_DEPTH", 0)
	// Display names for numeric classes, e.g. "good,bad" for 0 and 1
	TARGET_LABELS = os.Getenv("TARGET_LABELS")

	PREVIEW_ROWS   = GetEnvOrDefaultInt("PREVIEW_ROWS", 5)
	RATE_LIMIT_RPS = GetEnvOrDefaultInt("RATE_LIMIT_RPS", 20)
	MAX_UPLOAD_MB  = GetEnvOrDefaultInt("MAX_UPLOAD_MB", 16)

	SHUTDOWN_SLEEP_SEC = GetEnvOrDefaultInt("SHUTDOWN_SLEEP_SEC", 0)

	CRDB_DSN = os.Getenv("CRDB_DSN")

	AWS_ACCESS_KEY_ID     = os.Getenv("AWS_ACCESS_KEY_ID")
	AWS_SECRET_ACCESS_KEY = os.Getenv("AWS_SECRET_ACCESS_KEY")
	AWS_DEFAULT_REGION    = GetEnvOrDefault("AWS_DEFAULT_REGION", "us-east-1")

	S3_BUCKET_NAME = os.Getenv("S3_BUCKET_NAME")
	S3_ENDPOINT    = os.Getenv("S3_ENDPOINT")

	MINIO_ENDPOINT   = os.Getenv("MINIO_ENDPOINT")
	MINIO_ACCESS_KEY = os.Getenv("MINIO_ACCESS_KEY")
	MINIO_SECRET_KEY = os.Getenv("MINIO_SECRET_KEY")
	MINIO_BUCKET     = GetEnvOrDefault("MINIO_BUCKET", "credittree")
	MINIO_USE_SSL    = os.Getenv("MINIO_USE_SSL") == "1"
)
