// Package s3 stores encrypted vault documents as objects in an
// S3-compatible bucket (MinIO works via the base endpoint override).
// Vault blobs are already AEAD ciphertexts, so the bucket holds nothing
// a reader without the master key could use.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dmitrijs2005/keyvault/internal/models"
	"github.com/dmitrijs2005/keyvault/internal/store"
)

// Config holds the object-storage settings.
type Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// api is the S3 client subset used by the blob store; a test seam.
type api interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// BlobStore implements store.VaultStore on top of an S3 bucket.
type BlobStore struct {
	client api
	bucket string
}

// NewBlobStore builds an S3-backed vault store with static credentials and
// an optional base endpoint override.
func NewBlobStore(ctx context.Context, cfg Config) (*BlobStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.RootUser,
			cfg.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &BlobStore{client: client, bucket: cfg.Bucket}, nil
}

func vaultKey(accountID string) string {
	return fmt.Sprintf("vaults/%s.json", accountID)
}

func (b *BlobStore) PutEncryptedVault(ctx context.Context, ev *models.EncryptedVault) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("vault blob serialization error: %w", err)
	}

	key := vaultKey(ev.AccountID)
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &b.bucket,
		Key:    &key,
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	return nil
}

func (b *BlobStore) GetEncryptedVault(ctx context.Context, accountID string) (*models.EncryptedVault, error) {
	key := vaultKey(accountID)
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.bucket,
		Key:    &key,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	ev := &models.EncryptedVault{}
	if err := json.Unmarshal(body, ev); err != nil {
		return nil, fmt.Errorf("vault blob deserialization error: %w", err)
	}

	return ev, nil
}
