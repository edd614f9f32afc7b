package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/noai-dev/noai/internal/config"
)

// Resolver resolves an avatar key to a URL. An empty key resolves to "".
type Resolver interface {
	AvatarURL(ctx context.Context, key string) (string, error)
}

// Static serves avatars from a fixed base URL.
type Static struct {
	BaseURL string
}

// AvatarURL joins BaseURL and key.
func (s Static) AvatarURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	if s.BaseURL == "" {
		return key, nil
	}
	return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(key, "/"), nil
}

// S3Config configures presigned avatar URLs.
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	Expiry       time.Duration

	// Credentials overrides the SDK's default chain (environment, shared
	// files, then instance role).
	Credentials aws.CredentialsProvider
}

// S3 presigns GetObject URLs for avatar keys.
type S3 struct {
	presign *s3.PresignClient
	bucket  string
	expiry  time.Duration
}

// NewS3 creates an S3 resolver. Credentials are resolved on first use, and
// presigning itself never touches the network.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("media: s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("media: s3 region is required")
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = 15 * time.Minute
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Credentials != nil {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(cfg.Credentials))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("media: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		expiry:  cfg.Expiry,
	}, nil
}

// AvatarURL returns a presigned GET URL for key.
func (s *S3) AvatarURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	req, err := s.presign.PresignGetObject(ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(s.expiry),
	)
	if err != nil {
		return "", fmt.Errorf("media: presign %s: %w", key, err)
	}
	return req.URL, nil
}

// FromConfig builds the resolver selected by cfg.Media.
func FromConfig(ctx context.Context, cfg *config.Config) (Resolver, error) {
	m := cfg.Media
	switch m.Provider {
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:       m.Bucket,
			Region:       m.Region,
			Endpoint:     m.Endpoint,
			UsePathStyle: m.UsePathStyle,
			Expiry:       cfg.MediaExpiry(),
		})
	case "", "static":
		return Static{BaseURL: m.BaseURL}, nil
	default:
		return nil, fmt.Errorf("media: unknown provider %q", m.Provider)
	}
}
