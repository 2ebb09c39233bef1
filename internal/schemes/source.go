package schemes

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

// S3Options configures access to datasets stored in S3 compatible storage.
type S3Options struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access-key"`
	SecretKey string `mapstructure:"secret-key"`
}

// Open returns a reader for a local file or an s3://bucket/key object.
func Open(ctx context.Context, source string, opts S3Options) (io.ReadCloser, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("dataset source is empty")
	}

	if !strings.HasPrefix(source, s3Scheme) {
		return os.Open(source)
	}

	bucket, key, err := parseS3URI(source)
	if err != nil {
		return nil, err
	}

	return openS3(ctx, bucket, key, opts)
}

func parseS3URI(uri string) (string, string, error) {
	rest := strings.TrimPrefix(uri, s3Scheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", fmt.Errorf("invalid s3 uri %q: expected s3://bucket/key", uri)
	}
	return bucket, key, nil
}

func openS3(ctx context.Context, bucket, key string, opts S3Options) (io.ReadCloser, error) {
	loaders := make([]func(*config.LoadOptions) error, 0, 2)
	if opts.Region != "" {
		loaders = append(loaders, config.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}

	return out.Body, nil
}
