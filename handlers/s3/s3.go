// Package s3 provides a backend for S3-compatible object storage.
//
// Objects are stored in Config.Bucket under the slash-joined path of the
// item. Validation performs a round trip (write, head, delete) of a throwaway
// object, so bad credentials or a missing bucket fail finalization rather
// than the first upload.
//
//	backend, err := s3.New(s3.Config{
//	    Bucket:    "uploads",
//	    AccessKey: os.Getenv("S3_ACCESS_KEY"),
//	    SecretKey: os.Getenv("S3_SECRET_KEY"),
//	    Endpoint:  "http://localhost:9000", // MinIO
//	    PathStyle: true,
//	})
package s3

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/dmitrymomot/filestorage"
)

// ACL represents access control levels for stored objects.
type ACL string

const (
	// ACLPrivate makes the object accessible only via signed URLs.
	ACLPrivate ACL = "private"

	// ACLPublicRead makes the object publicly readable.
	ACLPublicRead ACL = "public-read"
)

// Default configuration values.
const (
	DefaultRegion           = "us-east-1"
	DefaultACL              = ACLPublicRead
	DefaultConnectTimeout   = 5 * time.Second
	DefaultReadTimeout      = 10 * time.Second
	DefaultKeepAliveTimeout = 12 * time.Second
	DefaultMaxAttempts      = 5
	DefaultSignedURLExpiry  = 15 * time.Minute

	maxRenameAttempts = 1_000
)

// Config holds S3-compatible storage configuration.
type Config struct {
	// Bucket is the bucket name (required).
	Bucket string

	// AccessKey is the access key ID (required).
	AccessKey string

	// SecretKey is the secret access key (required).
	SecretKey string

	// SessionToken is an optional session token for temporary credentials.
	SessionToken string

	// Endpoint is a custom endpoint URL (optional, for MinIO or other S3-compatible services).
	Endpoint string

	// Region is the region (default: us-east-1).
	Region string

	// ACL is applied to every uploaded object (default: public-read).
	ACL ACL

	// ConnectTimeout bounds establishing a connection (default: 5s).
	ConnectTimeout time.Duration

	// ReadTimeout bounds a whole request (default: 10s).
	ReadTimeout time.Duration

	// KeepAliveTimeout is the TCP keep-alive period (default: 12s).
	KeepAliveTimeout time.Duration

	// MaxAttempts is the number of attempts per request, retries included (default: 5).
	MaxAttempts int

	// PathStyle enables path-style URLs (required for MinIO).
	PathStyle bool
}

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.ACL == "" {
		c.ACL = DefaultACL
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = DefaultKeepAliveTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
}

func (c *Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	if c.AccessKey == "" {
		return fmt.Errorf("%w: access key is required", ErrInvalidConfig)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("%w: secret key is required", ErrInvalidConfig)
	}
	switch c.ACL {
	case ACLPrivate, ACLPublicRead:
	default:
		return fmt.Errorf("%w: unsupported ACL %q", ErrInvalidConfig, c.ACL)
	}
	return nil
}

// Backend stores files in an S3 bucket. It supports both call modes.
type Backend struct {
	filestorage.AsyncAdapter

	client    *awss3.Client
	presigner *awss3.PresignClient
	cfg       Config
}

// New creates a Backend with the given configuration.
func New(cfg Config) (*Backend, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	httpClient := awshttp.NewBuildableClient().
		WithTimeout(cfg.ReadTimeout).
		WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = cfg.ConnectTimeout
			d.KeepAlive = cfg.KeepAliveTimeout
		})

	opts := []func(*awss3.Options){
		func(o *awss3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				cfg.SessionToken,
			)
			o.HTTPClient = httpClient
			o.RetryMaxAttempts = cfg.MaxAttempts
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		},
	}

	if cfg.Endpoint != "" {
		opts = append(opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	client := awss3.New(awss3.Options{}, opts...)
	b := &Backend{
		client:    client,
		presigner: awss3.NewPresignClient(client),
		cfg:       cfg,
	}
	b.AsyncAdapter = filestorage.AsyncAdapter{B: b}
	return b, nil
}

// Mode implements filestorage.Backend.
func (b *Backend) Mode() filestorage.Mode { return filestorage.ModeBoth }

func (b *Backend) String() string { return "s3.Backend" }

// Client returns the underlying S3 client.
func (b *Backend) Client() *awss3.Client { return b.client }

// Bucket returns the configured bucket name.
func (b *Backend) Bucket() string { return b.cfg.Bucket }

// Validate implements filestorage.BlockingBackend. It writes, checks and
// deletes a throwaway object.
func (b *Backend) Validate(ctx context.Context) error {
	item := filestorage.NewFileItem(
		fmt.Sprintf("__delete_me__%s.txt", uuid.NewString()), nil, nil,
	).WithBytes([]byte("Credential test run from the filestorage library."))

	name, err := b.Save(ctx, item)
	if err != nil {
		return filestorage.NewConfigError(err, "S3 bucket %q failed the credential test: %v", b.cfg.Bucket, err)
	}
	item = item.WithFilename(name).WithData(nil)
	if _, err := b.Exists(ctx, item); err != nil {
		return filestorage.NewConfigError(err, "S3 bucket %q failed the credential test: %v", b.cfg.Bucket, err)
	}
	if err := b.Delete(ctx, item); err != nil {
		return filestorage.NewConfigError(err, "S3 bucket %q failed the credential test: %v", b.cfg.Bucket, err)
	}
	return nil
}

// Exists implements filestorage.BlockingBackend.
func (b *Backend) Exists(ctx context.Context, item filestorage.FileItem) (bool, error) {
	_, err := b.head(ctx, item)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Delete implements filestorage.BlockingBackend.
// S3 reports success for missing keys.
func (b *Backend) Delete(ctx context.Context, item filestorage.FileItem) error {
	input := &awss3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(item.URLPath()),
	}

	if _, err := b.client.DeleteObject(ctx, input); err != nil {
		return wrapError(err, ErrDeleteFailed)
	}
	return nil
}

// Save implements filestorage.BlockingBackend. An existing object is never
// overwritten: the item is stored under the first free "name-N.ext", found
// with HeadObject. The probe is not atomic, so two concurrent saves of the
// same name may still race for one key.
func (b *Backend) Save(ctx context.Context, item filestorage.FileItem) (string, error) {
	item, err := b.unique(ctx, item)
	if err != nil {
		return "", err
	}

	contentType := item.ContentType()
	if contentType == "" {
		contentType = filestorage.MediaTypeOctetStream
	}

	var acl types.ObjectCannedACL
	switch b.cfg.ACL {
	case ACLPrivate:
		acl = types.ObjectCannedACLPrivate
	default:
		acl = types.ObjectCannedACLPublicRead
	}

	err = item.Use(func(r *filestorage.Reader) error {
		size, err := r.Size()
		if err != nil {
			return err
		}
		input := &awss3.PutObjectInput{
			Bucket:        aws.String(b.cfg.Bucket),
			Key:           aws.String(item.URLPath()),
			Body:          r,
			ContentLength: aws.Int64(size),
			ContentType:   aws.String(contentType),
			ACL:           acl,
		}
		if _, err := b.client.PutObject(ctx, input); err != nil {
			return wrapError(err, ErrUploadFailed)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return item.Filename, nil
}

// Stat implements filestorage.StatBackend. S3 reports no access or
// creation time; both are set to the last modification time.
func (b *Backend) Stat(ctx context.Context, item filestorage.FileItem) (filestorage.FileInfo, error) {
	output, err := b.head(ctx, item)
	if err != nil {
		return filestorage.FileInfo{}, err
	}

	info := filestorage.FileInfo{Name: item.Filename}
	if output.ContentLength != nil {
		info.Size = *output.ContentLength
	}
	if output.LastModified != nil {
		info.ModTime = *output.LastModified
		info.AccessedTime = info.ModTime
		info.CreatedTime = info.ModTime
	}
	return info, nil
}

// SignedURL returns a pre-signed GET URL for item, valid for expiry.
// A zero expiry uses DefaultSignedURLExpiry.
func (b *Backend) SignedURL(ctx context.Context, item filestorage.FileItem, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultSignedURLExpiry
	}
	input := &awss3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(item.URLPath()),
	}

	result, err := b.presigner.PresignGetObject(ctx, input, func(po *awss3.PresignOptions) {
		po.Expires = expiry
	})
	if err != nil {
		return "", wrapError(err, ErrPresignFailed)
	}
	return result.URL, nil
}

// unique returns item renamed to the first key not taken in the bucket.
func (b *Backend) unique(ctx context.Context, item filestorage.FileItem) (filestorage.FileItem, error) {
	ext := path.Ext(item.Filename)
	stem := strings.TrimSuffix(item.Filename, ext)

	candidate := item
	for counter := 1; counter <= maxRenameAttempts; counter++ {
		taken, err := b.Exists(ctx, candidate)
		if err != nil {
			return item, err
		}
		if !taken {
			return candidate, nil
		}
		if err := ctx.Err(); err != nil {
			return item, err
		}
		candidate = item.WithFilename(fmt.Sprintf("%s-%d%s", stem, counter, ext))
	}
	return item, fmt.Errorf("%w: %s", ErrNoUniqueName, item.Filename)
}

func (b *Backend) head(ctx context.Context, item filestorage.FileItem) (*awss3.HeadObjectOutput, error) {
	input := &awss3.HeadObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(item.URLPath()),
	}

	output, err := b.client.HeadObject(ctx, input)
	if err != nil {
		return nil, wrapError(err, ErrHeadFailed)
	}
	return output, nil
}

var (
	_ filestorage.BlockingBackend    = (*Backend)(nil)
	_ filestorage.NonBlockingBackend = (*Backend)(nil)
	_ filestorage.StatBackend        = (*Backend)(nil)
)
