package s3store

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/memorial-backend/pkg/config"
)

type fakeS3 struct {
	objects map[string]string
	types   map[string]string
	headErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]string{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = string(b)
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	prefix := aws.ToString(in.Prefix)
	out := &s3.ListObjectsV2Output{}
	for key, body := range f.objects {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key), Size: aws.Int64(int64(len(body)))})
	}
	return out, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func testConfig() config.S3Config {
	return config.S3Config{Bucket: "memorials", Region: "eu-central-1", PublicBaseURL: "https://cdn.example.com"}
}

func TestPutUsesNamespaceAndPublicBase(t *testing.T) {
	api := newFakeS3()
	store := New(api, testConfig(), "uploads")

	path, err := store.Put(context.Background(), "images/a.jpg", strings.NewReader("jpeg"), 4, "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/uploads/images/a.jpg", path)
	require.Equal(t, "jpeg", api.objects["uploads/images/a.jpg"])
	require.Equal(t, "image/jpeg", api.types["uploads/images/a.jpg"])
}

func TestListReturnsDirectChildren(t *testing.T) {
	api := newFakeS3()
	api.objects["uploads/audio/b.mp3"] = "bb"
	api.objects["uploads/audio/a.ogg"] = "a"
	api.objects["uploads/images/x.jpg"] = "x"
	store := New(api, testConfig(), "uploads")

	objects, err := store.List(context.Background(), "audio")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	require.Equal(t, "a.ogg", objects[0].Name)
	require.Equal(t, "audio/b.mp3", objects[1].Key)
	require.Equal(t, "https://cdn.example.com/uploads/audio/b.mp3", objects[1].Path)
	require.EqualValues(t, 2, objects[1].Size)
}

func TestDeleteRemovesObject(t *testing.T) {
	api := newFakeS3()
	store := New(api, testConfig(), "qrcodes")
	_, err := store.Put(context.Background(), "id.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	require.NoError(t, store.Delete(context.Background(), "id.png"))
	require.Empty(t, api.objects)
}

func TestDefaultPublicBase(t *testing.T) {
	cfg := testConfig()
	cfg.PublicBaseURL = ""
	store := New(newFakeS3(), cfg, "qrcodes")
	require.Equal(t, "https://memorials.s3.eu-central-1.amazonaws.com/qrcodes/x.png", store.PublicPath("x.png"))

	cfg.EndpointURL = "http://minio:9000"
	store = New(newFakeS3(), cfg, "qrcodes")
	require.Equal(t, "http://minio:9000/memorials/qrcodes/x.png", store.PublicPath("x.png"))
}

func TestPingWrapsError(t *testing.T) {
	api := newFakeS3()
	api.headErr = errors.New("forbidden")
	store := New(api, testConfig(), "uploads")
	require.ErrorContains(t, store.Ping(context.Background()), "memorials")
}
