package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/goodpass/backoffice/internal/config"
	"github.com/goodpass/backoffice/internal/domain"
)

// DocumentStore resolves supporting-document keys to short-lived signed URLs
// and archives import payloads and expired activity batches.
type DocumentStore struct {
	client          *s3.Client
	presigner       *s3.PresignClient
	documentsBucket string
	archiveBucket   string
	urlTTL          time.Duration
}

// NewDocumentStore creates a new S3-backed document store
func NewDocumentStore(ctx context.Context, cfg appConfig.S3Config, urlTTL time.Duration) (*DocumentStore, error) {
	// Custom resolver for MinIO/Localstack support
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           cfg.Endpoint,
				SigningRegion: cfg.Region,
			}, nil
		}
		// returning EndpointNotFoundError will allow the service to fallback to it's default resolution
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithEndpointResolverWithOptions(customResolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true // Required for MinIO
	})

	return &DocumentStore{
		client:          client,
		presigner:       s3.NewPresignClient(client),
		documentsBucket: cfg.DocumentsBucket,
		archiveBucket:   cfg.ArchiveBucket,
		urlTTL:          urlTTL,
	}, nil
}

// SignedDocumentURL returns a time-limited URL for a supporting document.
// Clients must re-fetch after expiry.
func (s *DocumentStore) SignedDocumentURL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.documentsBucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign document url: %w", err)
	}
	return req.URL, nil
}

// ArchiveImportBatch stores the raw payload of a committed import for audit.
func (s *DocumentStore) ArchiveImportBatch(ctx context.Context, batchID string, records any) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal import batch: %w", err)
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("imports/%d/%02d/%02d/%s.json", now.Year(), now.Month(), now.Day(), batchID)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.archiveBucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload import batch to s3: %w", err)
	}
	return nil
}

// ArchiveActivityBatch uploads expired activity events before they are
// purged from the database.
func (s *DocumentStore) ArchiveActivityBatch(ctx context.Context, events []*domain.ActivityEvent, batchID string) error {
	if len(events) == 0 {
		return nil
	}

	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal activity batch: %w", err)
	}

	// Key format: activity/year/month/day/batchID.json
	now := time.Now().UTC()
	key := fmt.Sprintf("activity/%d/%02d/%02d/%s.json", now.Year(), now.Month(), now.Day(), batchID)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.archiveBucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload activity batch to s3: %w", err)
	}
	return nil
}
