package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"brandmatch_server/config"
	"brandmatch_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Upload purposes
const (
	UploadPurposeProfile = "profile"
	UploadPurposeMessage = "message"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// MatchLookup resolves a match visible to a user
type MatchLookup interface {
	GetMatch(ctx context.Context, matchID, userID string) (*models.Match, error)
}

// MediaService hands out presigned S3 URLs for profile pictures and message attachments.
// Message attachments live under message/<matchId>/ and are only visible to the match participants.
type MediaService struct {
	Presigner *s3.PresignClient
	Bucket    string
	Expires   time.Duration
	Matches   MatchLookup
	Logger    *zap.Logger
	Clock     func() time.Time
}

// UploadInput describes a file the caller is about to upload
type UploadInput struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"fileType"`
	Purpose     string `json:"purpose,omitempty"`
	MatchID     string `json:"matchId,omitempty"`
}

// UploadURL is a presigned PUT plus the object key to reference afterwards
type UploadURL struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewS3Client builds an S3 client for the configured region and optional endpoint
func NewS3Client(ctx context.Context, cfg config.AWSConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (ms *MediaService) now() time.Time {
	if ms.Clock != nil {
		return ms.Clock()
	}
	return time.Now()
}

func (ms *MediaService) expires() time.Duration {
	if ms.Expires <= 0 {
		return 5 * time.Minute
	}
	return ms.Expires
}

// SanitizeFileName keeps the base name and replaces unsafe characters with '-'
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		return "file"
	}
	return name
}

func allowedContentType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || contentType == "application/pdf"
}

// GenerateUploadURL presigns a PUT for profile/<userId>/<timestamp>-<name> or
// message/<matchId>/<userId>/<timestamp>-<name>
func (ms *MediaService) GenerateUploadURL(ctx context.Context, userID string, in UploadInput) (*UploadURL, error) {
	purpose := in.Purpose
	if purpose == "" {
		purpose = UploadPurposeProfile
	}
	if purpose != UploadPurposeProfile && purpose != UploadPurposeMessage {
		return nil, fmt.Errorf("%w: purpose must be profile or message", models.ErrInvalidInput)
	}
	contentType := strings.ToLower(strings.TrimSpace(in.ContentType))
	if !allowedContentType(contentType) {
		return nil, fmt.Errorf("%w: unsupported content type %q", models.ErrInvalidInput, contentType)
	}
	if strings.TrimSpace(in.FileName) == "" {
		return nil, fmt.Errorf("%w: fileName is required", models.ErrInvalidInput)
	}

	now := ms.now().UTC()
	object := fmt.Sprintf("%s/%s-%s", userID, now.Format("20060102150405"), SanitizeFileName(in.FileName))
	key := UploadPurposeProfile + "/" + object
	if purpose == UploadPurposeMessage {
		matchID := strings.TrimSpace(in.MatchID)
		if matchID == "" || strings.ContainsAny(matchID, "/.") {
			return nil, fmt.Errorf("%w: matchId is required for message uploads", models.ErrInvalidInput)
		}
		if err := ms.authorizeMatch(ctx, matchID, userID); err != nil {
			return nil, err
		}
		key = UploadPurposeMessage + "/" + matchID + "/" + object
	}

	req, err := ms.Presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ms.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ms.expires()))
	if err != nil {
		ms.Logger.Error("failed to presign upload", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return &UploadURL{URL: req.URL, Key: key, ExpiresAt: now.Add(ms.expires())}, nil
}

// GenerateReadURL presigns a GET for an uploaded object. Profile pictures are
// readable by any user; message attachments only by the match participants.
func (ms *MediaService) GenerateReadURL(ctx context.Context, userID, key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: invalid object key", models.ErrInvalidInput)
	}

	parts := strings.Split(key, "/")
	switch {
	case parts[0] == UploadPurposeProfile && len(parts) == 3:
	case parts[0] == UploadPurposeMessage && len(parts) == 4:
		if err := ms.authorizeMatch(ctx, parts[1], userID); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: invalid object key", models.ErrInvalidInput)
	}

	req, err := ms.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ms.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ms.expires()))
	if err != nil {
		ms.Logger.Error("failed to presign read", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to generate read URL: %w", err)
	}
	return req.URL, nil
}

func (ms *MediaService) authorizeMatch(ctx context.Context, matchID, userID string) error {
	if ms.Matches == nil {
		return fmt.Errorf("message attachments are not configured: %w", models.ErrForbidden)
	}
	if _, err := ms.Matches.GetMatch(ctx, matchID, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("match %s: %w", matchID, models.ErrForbidden)
		}
		return err
	}
	return nil
}
