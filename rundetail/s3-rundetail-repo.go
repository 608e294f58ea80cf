package rundetail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/klauspost/compress/zstd"
	"github.com/patrickmn/go-cache"
	"github.com/programme-lv/scoreboard/logger"
	"github.com/programme-lv/scoreboard/scoreboard"
)

const mediaTypeZstd = "application/zstd"

// ObjectStore is the subset of the S3 client used by S3RunDetailRepo.
type ObjectStore interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3RunDetailRepo reads judge reports stored as "<guid>.json.zst", falling
// back to plain "<guid>.json" for reports written before compression.
// Reports never change once written, so they are memoized.
type S3RunDetailRepo struct {
	client     ObjectStore
	bucketName string
	memo       *cache.Cache
}

func NewS3RunDetailRepo(client ObjectStore, bucketName string) *S3RunDetailRepo {
	return &S3RunDetailRepo{
		client:     client,
		bucketName: bucketName,
		memo:       cache.New(30*time.Minute, 10*time.Minute),
	}
}

// NewS3RunDetailRepoFromRegion loads the default AWS config for region.
func NewS3RunDetailRepoFromRegion(ctx context.Context, region string, bucketName string) (*S3RunDetailRepo, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewS3RunDetailRepo(s3.NewFromConfig(cfg), bucketName), nil
}

func (r *S3RunDetailRepo) RunDetails(ctx context.Context, guid string) (scoreboard.RunDetails, error) {
	if cached, found := r.memo.Get(guid); found {
		return cached.(scoreboard.RunDetails), nil
	}

	log := logger.FromContext(ctx)
	log.Debug("fetching run details", "guid", guid)

	data, err := r.download(ctx, guid+".json.zst")
	if err == nil {
		data, err = decompress(data)
		if err != nil {
			return scoreboard.RunDetails{}, err
		}
	} else {
		var noKey *types.NoSuchKey
		if !errors.As(err, &noKey) {
			return scoreboard.RunDetails{}, fmt.Errorf("failed to get run details from S3: %w", err)
		}
		data, err = r.download(ctx, guid+".json")
		if err != nil {
			return scoreboard.RunDetails{}, fmt.Errorf("failed to get run details from S3: %w", err)
		}
	}

	var details scoreboard.RunDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return scoreboard.RunDetails{}, fmt.Errorf("failed to unmarshal run details: %w", err)
	}
	if details.GUID == "" {
		details.GUID = guid
	}

	r.memo.SetDefault(guid, details)
	return details, nil
}

// Save stores a compressed report under "<guid>.json.zst".
func (r *S3RunDetailRepo) Save(ctx context.Context, details scoreboard.RunDetails) error {
	if details.GUID == "" {
		return errors.New("run details without guid")
	}
	data, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal run details: %w", err)
	}
	compressed, err := compressWithZstd(data)
	if err != nil {
		return err
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucketName),
		Key:         aws.String(details.GUID + ".json.zst"),
		Body:        bytes.NewReader(compressed),
		ContentType: aws.String(mediaTypeZstd),
	})
	if err != nil {
		return fmt.Errorf("failed to store run details in S3: %w", err)
	}
	r.memo.Delete(details.GUID)
	return nil
}

func (r *S3RunDetailRepo) download(ctx context.Context, key string) ([]byte, error) {
	output, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func compressWithZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Zstd encoder: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Zstd decoder: %w", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress run details: %w", err)
	}
	return out, nil
}
