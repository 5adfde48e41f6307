package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/avolkovs/taskdeck/internal/server/config"
)

func newSvcForPresign(t *testing.T) *UserService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	cfg := &config.Config{
		SecretKey:      "k",
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "avatars",
	}
	return NewUserService(db, &fakeRepoManager{u: &fakeUsersRepo{}}, cfg)
}

func stubPresignClient(t *testing.T) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000" {
			t.Fatalf("BaseEndpoint not applied: %v", opts.BaseEndpoint)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
}

func TestAvatarUploadURL(t *testing.T) {
	svc := newSvcForPresign(t)
	stubPresignClient(t)

	origPut := presignPutObject
	t.Cleanup(func() { presignPutObject = origPut })

	var capturedBucket, capturedKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		capturedBucket = *in.Bucket
		capturedKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "http://signed-put"}, nil
	}

	key, url, err := svc.AvatarUploadURL(context.Background(), "u1")
	if err != nil {
		t.Fatalf("AvatarUploadURL error: %v", err)
	}
	if url != "http://signed-put" {
		t.Fatalf("unexpected url: %q", url)
	}
	if capturedBucket != "avatars" {
		t.Fatalf("unexpected bucket: %q", capturedBucket)
	}
	if key != capturedKey || !strings.HasPrefix(key, "avatars/u1/") {
		t.Fatalf("unexpected key: %q (signed %q)", key, capturedKey)
	}
}

func TestAvatarDownloadURL(t *testing.T) {
	svc := newSvcForPresign(t)
	stubPresignClient(t)

	origGet := presignGetObject
	t.Cleanup(func() { presignGetObject = origGet })

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if *in.Key != "avatars/u1/k1" {
			t.Fatalf("unexpected key: %q", *in.Key)
		}
		return &v4.PresignedHTTPRequest{URL: "http://signed-get"}, nil
	}

	url, err := svc.AvatarDownloadURL(context.Background(), "avatars/u1/k1")
	if err != nil {
		t.Fatalf("AvatarDownloadURL error: %v", err)
	}
	if url != "http://signed-get" {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestAvatarUploadURL_PresignError(t *testing.T) {
	svc := newSvcForPresign(t)
	stubPresignClient(t)

	origPut := presignPutObject
	t.Cleanup(func() { presignPutObject = origPut })

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign down")
	}

	_, _, err := svc.AvatarUploadURL(context.Background(), "u1")
	if err == nil {
		t.Fatal("expected error")
	}
}
