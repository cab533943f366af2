package media

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner issues time-limited read and write URLs for stored objects.
type Presigner interface {
	PresignGet(ctx context.Context, ref Ref, ttl time.Duration) (string, error)
	PresignPut(ctx context.Context, ref Ref, contentType string, ttl time.Duration) (string, error)
}

// S3Presigner is the production Presigner backed by the AWS SDK presign
// client.
type S3Presigner struct {
	client *s3.PresignClient
}

func NewS3Presigner(ctx context.Context, region string) (*S3Presigner, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &S3Presigner{client: s3.NewPresignClient(s3.NewFromConfig(cfg))}, nil
}

func (p *S3Presigner) PresignGet(ctx context.Context, ref Ref, ttl time.Duration) (string, error) {
	out, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

func (p *S3Presigner) PresignPut(ctx context.Context, ref Ref, contentType string, ttl time.Duration) (string, error) {
	out, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ref.Bucket),
		Key:         aws.String(ref.Key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return out.URL, nil
}
