package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Archiver copies uploaded PDFs to S3-compatible storage
type S3Archiver struct {
	s3Client s3iface.S3API
	bucket   string
	prefix   string
}

// Config holds configuration for the S3 archiver
type Config struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Region          string
	Prefix          string
}

// Enabled reports whether enough settings are present to archive
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

// NewS3Archiver creates a new S3 archiver
func NewS3Archiver(config Config) (*S3Archiver, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is not configured")
	}
	if (config.AccessKeyID == "") != (config.AccessKeySecret == "") {
		return nil, fmt.Errorf("S3 configuration is incomplete")
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if config.AccessKeyID != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKeyID, config.AccessKeySecret, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	return NewS3ArchiverWithClient(s3.New(sess), config.Bucket, config.Prefix), nil
}

// NewS3ArchiverWithClient wires an existing S3 client
func NewS3ArchiverWithClient(client s3iface.S3API, bucket, prefix string) *S3Archiver {
	if prefix == "" {
		prefix = "invoices"
	}
	return &S3Archiver{
		s3Client: client,
		bucket:   bucket,
		prefix:   prefix,
	}
}

// ObjectKey returns the content-addressed key for a PDF
func (a *S3Archiver) ObjectKey(data []byte) string {
	sum := sha256.Sum256(data)
	return path.Join(a.prefix, hex.EncodeToString(sum[:])+".pdf")
}

// ArchivePDF uploads the PDF and returns its object key.
// Identical content always maps to the same key.
func (a *S3Archiver) ArchivePDF(ctx context.Context, data []byte, mimeType string) (string, error) {
	key := a.ObjectKey(data)

	_, err := a.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(mimeType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return key, nil
}
