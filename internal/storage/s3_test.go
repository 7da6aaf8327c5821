package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3Client struct {
	s3iface.S3API
	deleted []string
}

func (f *fakeS3Client) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

type fakeUploader struct {
	bodies       map[string]string
	contentTypes map[string]string
}

func (f *fakeUploader) Upload(in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return f.UploadWithContext(context.Background(), in, opts...)
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.StringValue(in.Key)
	f.bodies[key] = string(body)
	f.contentTypes[key] = aws.StringValue(in.ContentType)
	return &s3manager.UploadOutput{Location: "https://bucket/" + key}, nil
}

func TestS3StorageUsesBucketAndKey(t *testing.T) {
	client := &fakeS3Client{}
	uploader := &fakeUploader{bodies: map[string]string{}, contentTypes: map[string]string{}}
	store := &S3Storage{client: client, uploader: uploader, bucket: "media", publicURL: "https://cdn.example.ae"}

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "/gallery/events/a.jpg", strings.NewReader("data"), "image/jpeg"))
	assert.Equal(t, "data", uploader.bodies["gallery/events/a.jpg"])
	assert.Equal(t, "image/jpeg", uploader.contentTypes["gallery/events/a.jpg"])

	require.NoError(t, store.Delete(ctx, "gallery/events/a.jpg"))
	assert.Equal(t, []string{"media/gallery/events/a.jpg"}, client.deleted)

	assert.Equal(t, "https://cdn.example.ae/gallery/events/a.jpg", store.URL("gallery/events/a.jpg"))
}

func TestS3PublicURLRequiresAbsoluteURLForCustomEndpoint(t *testing.T) {
	_, err := NewS3Storage(Config{
		Driver:    "s3",
		Bucket:    "media",
		Region:    "auto",
		Endpoint:  "https://acct.r2.cloudflarestorage.com",
		PublicURL: "/uploads",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute public URL")

	store, err := NewS3Storage(Config{
		Bucket:    "media",
		Region:    "auto",
		Endpoint:  "https://acct.r2.cloudflarestorage.com",
		PublicURL: "https://media.dxbfab.ae/",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://media.dxbfab.ae/gallery/a.jpg", store.URL("gallery/a.jpg"))

	url, err := s3PublicURL(Config{Bucket: "media", PublicURL: "/uploads"})
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.amazonaws.com", url)
}
