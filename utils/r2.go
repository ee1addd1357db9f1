package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Publisher uploads small JSON documents (the day's challenge set) to a
// Cloudflare R2 bucket so game clients can read them from the CDN.
type R2Publisher struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewR2Publisher(ctx context.Context, cfg R2Config) (*R2Publisher, error) {
	cdnBaseURL := cfg.CDNBaseURL
	if cdnBaseURL == "" {
		cdnBaseURL = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &R2Publisher{client: client, bucket: cfg.Bucket, cdnBaseURL: cdnBaseURL}, nil
}

// ChallengeKeys returns the object keys a day's catalog is written to: a dated
// copy and a stable "today" alias.
func ChallengeKeys(day string) []string {
	return []string{
		fmt.Sprintf("challenges/%s.json", day),
		"challenges/today.json",
	}
}

// PublishJSON marshals v and uploads it under key, returning the public URL.
func (p *R2Publisher) PublishJSON(ctx context.Context, key string, v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("public, max-age=60"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return fmt.Sprintf("%s/%s", p.cdnBaseURL, key), nil
}
