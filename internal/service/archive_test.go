package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietvite/backend/internal/models"
	"github.com/dietvite/backend/internal/service"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (p *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	p.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archiver_Archive(t *testing.T) {
	challenge := models.NewChallenge(uuid.New(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3, []string{protein})
	challenge.ID = uuid.New()
	challenge.Nutrients[protein][1] = 42

	putter := &fakePutter{}
	archiver := service.NewS3Archiver(putter, "dietvite-archive")
	require.NoError(t, archiver.Archive(context.Background(), challenge))

	assert.Equal(t, "dietvite-archive", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "challenges/"+challenge.UserID.String()+"/"+challenge.ID.String()+".json", aws.ToString(putter.input.Key))
	assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))

	var archived models.Challenge
	require.NoError(t, json.Unmarshal(putter.body, &archived))
	assert.Equal(t, challenge.ID, archived.ID)
	assert.Equal(t, []float64{0, 42, 0}, archived.Nutrients[protein])
}

func TestS3Archiver_ArchiveError(t *testing.T) {
	challenge := models.NewChallenge(uuid.New(), time.Now(), 3, []string{protein})
	archiver := service.NewS3Archiver(&fakePutter{err: errors.New("access denied")}, "bucket")

	assert.Error(t, archiver.Archive(context.Background(), challenge))
}
