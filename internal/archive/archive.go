// Package archive publishes certificate documents to S3-compatible object
// storage, keyed by their publication code.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/mintflow/internal/attest"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// ObjectPutter is the part of *s3.Client the archive uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Archive struct {
	client ObjectPutter
	bucket string
	prefix string
}

// New connects to the bucket described by cfg. A custom endpoint, such as a
// MinIO server, is addressed path-style.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: archive bucket is required", common.ErrConfiguration)
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func NewWithClient(client ObjectPutter, bucket, prefix string) *Archive {
	return &Archive{client: client, bucket: bucket, prefix: prefix}
}

// Key is the object key a certificate is stored under.
func (a *Archive) Key(c *models.Certificate) string {
	return path.Join(a.prefix, "certificates", c.PublicationCode+".json")
}

// Publish uploads the publication document of c and returns its key. The
// document must hash to the certificate's publication code.
func (a *Archive) Publish(ctx context.Context, c *models.Certificate) (string, error) {
	doc, err := attest.PublicationDocument(c)
	if err != nil {
		return "", fmt.Errorf("publication document: %w", err)
	}
	code, err := attest.PublicationCode(c)
	if err != nil {
		return "", fmt.Errorf("publication code: %w", err)
	}
	if code != c.PublicationCode {
		return "", fmt.Errorf("%w: certificate %s publication code %s does not address its document", common.ErrValidation, c.ID, c.PublicationCode)
	}

	key := a.Key(c)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(doc),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"certificate-id": c.ID,
			"settlement-ref": c.SettlementRef,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}
