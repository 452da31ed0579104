// Package storage uploads generated NFT metadata documents to an
// S3-compatible object store and hands back public URIs.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type SpacesService struct {
	client       *s3.Client
	bucket       string
	region       string
	MetadataRoot string
}

func NewSpacesService(spacesKey, spacesSecret, region, bucket, metadataRoot string) (*SpacesService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load spaces config: %w", err)
	}

	return &SpacesService{
		client:       s3.NewFromConfig(cfg),
		bucket:       bucket,
		region:       region,
		MetadataRoot: strings.TrimPrefix(metadataRoot, "/"),
	}, nil
}

// ShipMetadata is the document referenced by a minted ship's
// metadata URI.
type ShipMetadata struct {
	Name        string            `json:"name"`
	Symbol      string            `json:"symbol"`
	Description string            `json:"description"`
	Attributes  map[string]string `json:"attributes"`
}

// UploadShipMetadata writes the metadata JSON for a wallet's ship and
// returns its public URI. Re-uploading for the same wallet overwrites
// the same key, so retries are harmless.
func (s *SpacesService) UploadShipMetadata(ctx context.Context, wallet string, meta ShipMetadata) (string, error) {
	body, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	key := fmt.Sprintf("%s/%s.json", s.MetadataRoot, wallet)
	contentType := "application/json"

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload metadata: %w", err)
	}

	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.bucket, s.region, key), nil
}
