package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dietvite/backend/config"
	"github.com/dietvite/backend/internal/models"
)

// ChallengeArchiver keeps a copy of a challenge before it is replaced
type ChallengeArchiver interface {
	Archive(ctx context.Context, challenge *models.Challenge) error
}

// ObjectPutter is the part of the S3 client the archiver needs
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes challenges as JSON objects
type S3Archiver struct {
	client ObjectPutter
	bucket string
}

func NewS3Archiver(client ObjectPutter, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

// NewS3ArchiverFromConfig builds an archiver on the configured bucket
func NewS3ArchiverFromConfig(s3cfg *config.S3Config) *S3Archiver {
	return NewS3Archiver(s3cfg.Client, s3cfg.BucketName)
}

// ArchiveKey is the object key of an archived challenge
func ArchiveKey(challenge *models.Challenge) string {
	return fmt.Sprintf("challenges/%s/%s.json", challenge.UserID, challenge.ID)
}

func (a *S3Archiver) Archive(ctx context.Context, challenge *models.Challenge) error {
	body, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(ArchiveKey(challenge)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive challenge %s: %w", challenge.ID, err)
	}
	return nil
}
