package media

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/noai-dev/noai/internal/config"
)

func TestStatic(t *testing.T) {
	tests := []struct {
		base, key, want string
	}{
		{"/avatars/", "user-2.png", "/avatars/user-2.png"},
		{"https://cdn.example.com", "/user-3.png", "https://cdn.example.com/user-3.png"},
		{"", "user-4.png", "user-4.png"},
		{"/avatars", "", ""},
	}
	for _, tt := range tests {
		got, err := Static{BaseURL: tt.base}.AvatarURL(context.Background(), tt.key)
		if err != nil || got != tt.want {
			t.Errorf("Static{%q}.AvatarURL(%q) = (%q, %v), want %q", tt.base, tt.key, got, err, tt.want)
		}
	}
}

// isolateAWS keeps the developer's shared AWS files out of the test.
func isolateAWS(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_SESSION_TOKEN", "")
}

func presignedQuery(t *testing.T, r *S3, key string) url.Values {
	t.Helper()
	raw, err := r.AvatarURL(context.Background(), key)
	if err != nil {
		t.Fatalf("AvatarURL error: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", raw, err)
	}
	return u.Query()
}

func TestS3_Presign(t *testing.T) {
	isolateAWS(t)
	r, err := NewS3(context.Background(), S3Config{
		Bucket:       "noai-avatars",
		Region:       "us-east-1",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
		Expiry:       5 * time.Minute,
		Credentials:  credentials.NewStaticCredentialsProvider("AKIDTEST", "secret", ""),
	})
	if err != nil {
		t.Fatalf("NewS3 error: %v", err)
	}

	raw, err := r.AvatarURL(context.Background(), "avatars/user-2.png")
	if err != nil {
		t.Fatalf("AvatarURL error: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", raw, err)
	}
	if u.Host != "localhost:9000" {
		t.Errorf("host = %q, want localhost:9000", u.Host)
	}
	if !strings.HasPrefix(u.Path, "/noai-avatars/avatars/user-2.png") {
		t.Errorf("path = %q, want bucket/key", u.Path)
	}
	q := u.Query()
	if q.Get("X-Amz-Signature") == "" {
		t.Error("missing X-Amz-Signature")
	}
	if q.Get("X-Amz-Expires") != "300" {
		t.Errorf("X-Amz-Expires = %q, want 300", q.Get("X-Amz-Expires"))
	}

	if !strings.HasPrefix(q.Get("X-Amz-Credential"), "AKIDTEST/") {
		t.Errorf("X-Amz-Credential = %q, want AKIDTEST key", q.Get("X-Amz-Credential"))
	}

	if got, _ := r.AvatarURL(context.Background(), ""); got != "" {
		t.Errorf("AvatarURL(\"\") = %q, want empty", got)
	}
}

func TestS3_EnvironmentCredentials(t *testing.T) {
	isolateAWS(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDENV")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "envsecret")

	r, err := NewS3(context.Background(), S3Config{Bucket: "noai-avatars", Region: "eu-west-1"})
	if err != nil {
		t.Fatalf("NewS3 error: %v", err)
	}
	q := presignedQuery(t, r, "avatars/user-3.png")
	if !strings.HasPrefix(q.Get("X-Amz-Credential"), "AKIDENV/") {
		t.Errorf("X-Amz-Credential = %q, want AKIDENV key", q.Get("X-Amz-Credential"))
	}
	if !strings.Contains(q.Get("X-Amz-Credential"), "/eu-west-1/s3/") {
		t.Errorf("X-Amz-Credential = %q, want eu-west-1 scope", q.Get("X-Amz-Credential"))
	}
	if q.Get("X-Amz-Expires") != "900" {
		t.Errorf("X-Amz-Expires = %q, want default 900", q.Get("X-Amz-Expires"))
	}
}

func TestNewS3_Validation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewS3(ctx, S3Config{Region: "us-east-1"}); err == nil {
		t.Error("NewS3 without bucket should fail")
	}
	if _, err := NewS3(ctx, S3Config{Bucket: "b"}); err == nil {
		t.Error("NewS3 without region should fail")
	}
}

func TestFromConfig(t *testing.T) {
	isolateAWS(t)
	ctx := context.Background()
	cfg := config.New()
	r, err := FromConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("FromConfig error: %v", err)
	}
	if _, ok := r.(Static); !ok {
		t.Errorf("FromConfig(default) = %T, want Static", r)
	}

	cfg.Media.Provider = "s3"
	cfg.Media.Bucket = "b"
	cfg.Media.Region = "eu-west-1"
	r, err = FromConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("FromConfig(s3) error: %v", err)
	}
	if _, ok := r.(*S3); !ok {
		t.Errorf("FromConfig(s3) = %T, want *S3", r)
	}

	cfg.Media.Provider = "ftp"
	if _, err := FromConfig(ctx, cfg); err == nil {
		t.Error("FromConfig(ftp) should fail")
	}
}
