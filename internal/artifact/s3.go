package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the object storage connection settings.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3Store is the Store implementation over S3-compatible object storage.
type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(cfg S3Config) *S3Store {
	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(cfg.Endpoint),
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	})
	return &S3Store{client: client, bucket: cfg.Bucket}
}

// ObjectKey is the conventional location packaging units upload to.
func ObjectKey(serverID, backupID string) string {
	return fmt.Sprintf("%s/%s.tar.gz", serverID, backupID)
}

func (s *S3Store) Locate(ctx context.Context, serverID, backupID string) (Ref, error) {
	ref := Ref{Bucket: s.bucket, Key: ObjectKey(serverID, backupID)}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return Ref{}, fmt.Errorf("locate artifact %s: %w", ref.Key, err)
	}
	return ref, nil
}

func (s *S3Store) Describe(ctx context.Context, ref Ref) (Info, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return Info{}, fmt.Errorf("head artifact %s: %w", ref.Key, err)
	}

	// The checksum is computed from the object bytes, not taken from
	// object metadata, so a corrupted upload is caught at restore time.
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return Info{}, fmt.Errorf("read artifact %s: %w", ref.Key, err)
	}
	defer obj.Body.Close()

	h := sha256.New()
	if _, err := io.Copy(h, obj.Body); err != nil {
		return Info{}, fmt.Errorf("hash artifact %s: %w", ref.Key, err)
	}

	return Info{
		SizeBytes: aws.ToInt64(head.ContentLength),
		Checksum:  "sha256:" + hex.EncodeToString(h.Sum(nil)),
		Format:    formatFromKey(ref.Key),
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, ref Ref) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return fmt.Errorf("delete artifact %s: %w", ref.Key, err)
	}
	return nil
}

func formatFromKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".tar.gz"), strings.HasSuffix(key, ".tgz"):
		return "gzip"
	case strings.HasSuffix(key, ".tar.zst"):
		return "zstd"
	default:
		return "tar"
	}
}
