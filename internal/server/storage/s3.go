package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// objectAPI is the subset of *s3.Client used outside of presigning.
type objectAPI interface {
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Options configures an S3Store.
//
// BaseEndpoint points at an S3-compatible service (MinIO and the like) and
// switches the client to path-style addressing. PublicBaseURL overrides the
// prefix stored in video rows; when empty it is derived from the endpoint.
type Options struct {
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	BaseEndpoint  string
	PublicBaseURL string
}

var _ BlobStore = (*S3Store)(nil)

type S3Store struct {
	bucket     string
	publicBase string
	presigner  *s3.PresignClient
	api        objectAPI
}

func NewS3Store(ctx context.Context, opts Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		bucket:     opts.Bucket,
		publicBase: publicBaseURL(opts),
		presigner:  newS3PresignClient(client),
		api:        client,
	}, nil
}

func publicBaseURL(opts Options) string {
	if opts.PublicBaseURL != "" {
		return strings.TrimRight(opts.PublicBaseURL, "/")
	}
	if opts.BaseEndpoint != "" {
		return strings.TrimRight(opts.BaseEndpoint, "/") + "/" + opts.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
}

func (s *S3Store) Bucket() string {
	return s.bucket
}

func (s *S3Store) PresignPut(ctx context.Context, key, contentType, cacheControl string, ttl time.Duration) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	if cacheControl != "" {
		in.CacheControl = aws.String(cacheControl)
	}

	req, err := presignPutObject(s.presigner, ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload of %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Store) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

// KeyFromURL recovers the object key from a stored public URL. URLs that do
// not start with the configured public base fall back to their last path
// segment.
func (s *S3Store) KeyFromURL(rawURL string) string {
	if rest, ok := strings.CutPrefix(rawURL, s.publicBase+"/"); ok {
		rest, _, _ = strings.Cut(rest, "?")
		if rest != "" {
			return rest
		}
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return path.Base(rawURL)
	}
	return path.Base(u.Path)
}

func (s *S3Store) URI(key string) string {
	return "s3://" + s.bucket + "/" + key
}

// Delete removes key. A missing object is not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// SetCacheControl rewrites the Cache-Control metadata of every object under
// prefix whose key ends in ext, copying each object onto itself with the
// REPLACE directive. Objects that already carry value are skipped. Content
// type and user metadata are preserved. It returns the keys that were (or,
// with dryRun, would be) updated.
func (s *S3Store) SetCacheControl(ctx context.Context, prefix, ext, value string, dryRun bool) ([]string, error) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	var updated []string
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return updated, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(strings.ToLower(key), ext) {
				continue
			}

			head, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return updated, fmt.Errorf("failed to read metadata of %s: %w", key, err)
			}
			if aws.ToString(head.CacheControl) == value {
				continue
			}

			if !dryRun {
				_, err = s.api.CopyObject(ctx, &s3.CopyObjectInput{
					Bucket:            aws.String(s.bucket),
					Key:               aws.String(key),
					CopySource:        aws.String(copySource(s.bucket, key)),
					MetadataDirective: types.MetadataDirectiveReplace,
					CacheControl:      aws.String(value),
					ContentType:       head.ContentType,
					Metadata:          head.Metadata,
				})
				if err != nil {
					return updated, fmt.Errorf("failed to update %s: %w", key, err)
				}
			}
			updated = append(updated, key)
		}
	}
	return updated, nil
}

func copySource(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return bucket + "/" + strings.Join(parts, "/")
}
