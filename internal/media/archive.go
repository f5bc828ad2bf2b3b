package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ppiankov/veritas/internal/model"
)

// Archive stores uploaded image bytes and returns the storage key
type Archive interface {
	Put(ctx context.Context, id string, data []byte, contentType string) (string, error)
}

// NewArchive builds the archive selected by cfg.Archive. It returns nil
// when archiving is disabled.
func NewArchive(ctx context.Context, cfg model.MediaConfig) (Archive, error) {
	switch strings.ToLower(cfg.Archive) {
	case "", "none":
		return nil, nil
	case "fs", "file", "filesystem":
		a, err := NewFSArchive(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "s3":
		a, err := NewS3Archive(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown media archive: %s", cfg.Archive)
	}
}

// objectKey returns images/YYYY/MM/<id><ext>
func objectKey(now time.Time, id, contentType string) string {
	ext := extensionFromContentType(contentType)
	if ext == "" {
		ext = ".bin"
	}
	return path.Join("images", fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), id+ext)
}

func extensionFromContentType(contentType string) string {
	contentType = strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))

	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	default:
		return ""
	}
}

// FSArchive writes images under a base directory
type FSArchive struct {
	baseDir string
	now     func() time.Time
}

// NewFSArchive creates dir if needed
func NewFSArchive(dir string) (*FSArchive, error) {
	if dir == "" {
		return nil, errors.New("media archive directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &FSArchive{baseDir: dir, now: time.Now}, nil
}

// Put writes data and returns its path relative to the base directory
func (a *FSArchive) Put(ctx context.Context, id string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := objectKey(a.now(), id, contentType)
	full := filepath.Join(a.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write image file: %w", err)
	}
	return key, nil
}

// S3Archive uploads images to an S3-compatible bucket
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Archive creates the client. Static credentials are used when set,
// otherwise the default AWS credential chain applies.
func NewS3Archive(ctx context.Context, cfg model.S3Config) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("S3 region is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		now:    time.Now,
	}, nil
}

// Put uploads data and returns the object key
func (a *S3Archive) Put(ctx context.Context, id string, data []byte, contentType string) (string, error) {
	key := objectKey(a.now(), id, contentType)
	if a.prefix != "" {
		key = a.prefix + "/" + key
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload image to S3: %w", err)
	}
	return key, nil
}
