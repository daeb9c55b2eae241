package services

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"brandmatch_server/config"
	"brandmatch_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMediaService(now time.Time) *MediaService {
	client := s3.New(s3.Options{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDTEST", "secret", ""),
	})
	return &MediaService{
		Presigner: s3.NewPresignClient(client),
		Bucket:    "brandmatch-media",
		Expires:   10 * time.Minute,
		Logger:    zap.NewNop(),
		Clock:     func() time.Time { return now },
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":             "photo.jpg",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\pic 1.png`: "pic-1.png",
		"my résumé.pdf":         "my-r-sum-.pdf",
		"   ":                   "file",
		"...":                   "file",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFileName(in), in)
	}
}

func TestGenerateUploadURL(t *testing.T) {
	env := newTestEnv(t)
	match, inf, _ := env.acceptedMatch(t)
	now := time.Date(2025, 3, 1, 12, 30, 45, 0, time.UTC)
	ms := newTestMediaService(now)
	ms.Matches = env.matches
	ctx := context.Background()

	up, err := ms.GenerateUploadURL(ctx, "user-1", UploadInput{FileName: "Profile Pic.PNG", ContentType: "Image/PNG"})
	require.NoError(t, err)
	assert.Equal(t, "profile/user-1/20250301123045-Profile-Pic.PNG", up.Key)
	assert.True(t, now.Add(10*time.Minute).Equal(up.ExpiresAt))

	u, err := url.Parse(up.URL)
	require.NoError(t, err)
	assert.Contains(t, u.Host+u.Path, "brandmatch-media")
	assert.True(t, strings.HasSuffix(u.Path, up.Key))
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	msg, err := ms.GenerateUploadURL(ctx, inf.ID, UploadInput{
		FileName:    "brief.pdf",
		ContentType: "application/pdf",
		Purpose:     UploadPurposeMessage,
		MatchID:     match.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "message/"+match.ID+"/"+inf.ID+"/20250301123045-brief.pdf", msg.Key)
}

func TestGenerateUploadURL_Validation(t *testing.T) {
	env := newTestEnv(t)
	match, _, _ := env.acceptedMatch(t)
	outsider := env.influencer(t, "eve", 100, 0)
	ms := newTestMediaService(time.Now())
	ms.Matches = env.matches
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		in     UploadInput
		want   error
	}{
		{"content type", "u", UploadInput{FileName: "a.exe", ContentType: "application/octet-stream"}, models.ErrInvalidInput},
		{"purpose", "u", UploadInput{FileName: "a.png", ContentType: "image/png", Purpose: "avatar"}, models.ErrInvalidInput},
		{"file name", "u", UploadInput{FileName: " ", ContentType: "image/png"}, models.ErrInvalidInput},
		{"message without match", "u", UploadInput{FileName: "a.png", ContentType: "image/png", Purpose: UploadPurposeMessage}, models.ErrInvalidInput},
		{"message match path", "u", UploadInput{FileName: "a.png", ContentType: "image/png", Purpose: UploadPurposeMessage, MatchID: "../x"}, models.ErrInvalidInput},
		{"unknown match", outsider.ID, UploadInput{FileName: "a.png", ContentType: "image/png", Purpose: UploadPurposeMessage, MatchID: "missing"}, models.ErrForbidden},
		{"not a participant", outsider.ID, UploadInput{FileName: "a.png", ContentType: "image/png", Purpose: UploadPurposeMessage, MatchID: match.ID}, models.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ms.GenerateUploadURL(ctx, tt.userID, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerateReadURL(t *testing.T) {
	env := newTestEnv(t)
	match, inf, co := env.acceptedMatch(t)
	outsider := env.influencer(t, "eve", 100, 0)
	ms := newTestMediaService(time.Now())
	ms.Matches = env.matches
	ctx := context.Background()

	raw, err := ms.GenerateReadURL(ctx, outsider.ID, "/profile/user-1/20250301123045-pic.png")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(u.Path, "profile/user-1/20250301123045-pic.png"))

	attachment := "message/" + match.ID + "/" + inf.ID + "/20250301123045-brief.pdf"
	for _, userID := range []string{inf.ID, co.ID} {
		_, err := ms.GenerateReadURL(ctx, userID, attachment)
		assert.NoError(t, err, userID)
	}
	_, err = ms.GenerateReadURL(ctx, outsider.ID, attachment)
	assert.ErrorIs(t, err, models.ErrForbidden)

	for _, key := range []string{"", "  ", "profile/../secrets", "private/report.pdf", "profile/pic.png", "message/" + match.ID + "/pic.png"} {
		_, err := ms.GenerateReadURL(ctx, inf.ID, key)
		assert.ErrorIs(t, err, models.ErrInvalidInput, key)
	}
}

func TestNewS3Client_Endpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDTEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	client, err := NewS3Client(context.Background(), config.AWSConfig{Region: "us-east-1", Endpoint: "http://localhost:4566"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566", aws.ToString(client.Options().BaseEndpoint))
	assert.True(t, client.Options().UsePathStyle)
}
