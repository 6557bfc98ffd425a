package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"codegate/internal/codebank"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

// S3API is the subset of the S3 client used by the store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Presigner is the subset of the S3 presign client used by the store.
type S3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store keeps the codebank record as a JSON object in an S3 bucket and
// signs temporary download URLs for objects in the same bucket. Revisions map
// onto S3 ETags, enforced with conditional writes.
type S3Store struct {
	client    S3API
	presigner S3Presigner
	bucket    string
	key       string
	logger    zerolog.Logger
}

// NewS3Store creates a store backed by the given bucket, keeping the codebank
// record at key.
func NewS3Store(client *s3.Client, bucket, key string, logger zerolog.Logger) *S3Store {
	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		key:       key,
		logger:    logger.With().Str("component", "s3-store").Logger(),
	}
}

// Load reads the codebank object. A missing object means first-time setup and
// yields an empty bank.
func (s *S3Store) Load(ctx context.Context) (*codebank.Codebank, Revision, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			s.logger.Info().
				Str("bucket", s.bucket).
				Str("key", s.key).
				Msg("no codebank record found, starting with an empty bank")
			return codebank.New(), "", nil
		}
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", s.key).
			Msg("failed to get codebank from S3")
		return nil, "", fmt.Errorf("failed to get codebank (bucket=%s, key=%s): %w", s.bucket, s.key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read codebank body: %w", err)
	}

	bank, err := decodeBank(data)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", s.key).
			Msg("stored codebank is unparsable")
		return nil, "", err
	}

	return bank, Revision(aws.ToString(result.ETag)), nil
}

// Persist overwrites the codebank object, conditional on the stored ETag
// still matching rev. A zero rev requires that the object does not exist yet.
func (s *S3Store) Persist(ctx context.Context, bank *codebank.Codebank, rev Revision) (Revision, error) {
	data, err := json.Marshal(bank)
	if err != nil {
		return "", fmt.Errorf("failed to encode codebank: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if rev == "" {
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(string(rev))
	}

	result, err := s.client.PutObject(ctx, input)
	if err != nil {
		if isPreconditionFailed(err) {
			s.logger.Warn().
				Str("bucket", s.bucket).
				Str("key", s.key).
				Str("revision", string(rev)).
				Msg("conditional write lost to a concurrent update")
			return "", ErrRevisionConflict
		}
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", s.key).
			Msg("failed to write codebank to S3")
		return "", fmt.Errorf("failed to write codebank (bucket=%s, key=%s): %w", s.bucket, s.key, err)
	}

	return Revision(aws.ToString(result.ETag)), nil
}

// SignDownload generates a presigned GET URL for the object at key, valid for
// ttl. The window is kept short so the URL cannot be shared after the
// redirect lands.
func (s *S3Store) SignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("failed to presign download URL")
		return "", fmt.Errorf("failed to presign download URL for %s: %w", key, err)
	}

	return req.URL, nil
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

// decodeBank parses a stored record, normalising absent sets to empty ones so
// the invariant checks and JSON round-trips behave.
func decodeBank(data []byte) (*codebank.Codebank, error) {
	var bank codebank.Codebank
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("failed to parse codebank record: %w", err)
	}
	if bank.UnusedCodes == nil {
		bank.UnusedCodes = []string{}
	}
	if bank.ExpiredCodes == nil {
		bank.ExpiredCodes = []string{}
	}
	return &bank, nil
}
