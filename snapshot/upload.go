// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot // import "go.opentelemetry.io/jvmstat/snapshot"

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
)

// PutObjectAPI is the part of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput,
		optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ PutObjectAPI = &s3.Client{}

// Client returns an S3 client using the default AWS credential chain. A
// non-empty endpoint selects an S3 compatible store with path style access.
func Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Key returns the object key for a snapshot of target taken at t.
func Key(prefix, target string, t time.Time) string {
	return path.Join(prefix, fmt.Sprintf("%s-%s.pdsn", target,
		t.UTC().Format("20060102T150405Z")))
}

// Upload stores a snapshot of data in bucket under key.
func Upload(ctx context.Context, client PutObjectAPI, bucket, key string, data []byte) error {
	var buf bytes.Buffer
	if err := Write(&buf, data); err != nil {
		return err
	}
	size := int64(buf.Len())

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to s3://%s/%s: %w", bucket, key, err)
	}
	log.Infof("Uploaded snapshot (%d bytes) to s3://%s/%s", size, bucket, key)
	return nil
}
