package feed

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmorgan81/platebot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]map[string]string
	times   map[string]time.Time
	headErr error
	prefix  string
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.prefix = aws.ToString(in.Prefix)
	out := &s3.ListObjectsV2Output{Contents: []s3types.Object{{Key: aws.String("recipes/")}}}
	for k := range f.objects {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeBucket) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headErr != nil {
		return nil, f.headErr
	}
	key := aws.ToString(in.Key)
	return &s3.HeadObjectOutput{Metadata: f.objects[key], LastModified: aws.Time(f.times[key])}, nil
}

type memUploader struct {
	uploads []store.UploadParams
}

func (m *memUploader) Upload(_ context.Context, p store.UploadParams) error {
	m.uploads = append(m.uploads, p)
	return nil
}

func newBucket() *fakeBucket {
	return &fakeBucket{
		objects: map[string]map[string]string{
			"recipes/pho.png":     {"recipe": "Pho", "source": "dalle"},
			"recipes/ramen.png":   {"recipe": "Ramen", "source": "dalle"},
			"recipes/mystery.png": {},
		},
		times: map[string]time.Time{
			"recipes/pho.png":     time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
			"recipes/ramen.png":   time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC),
			"recipes/mystery.png": time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestGenerate(t *testing.T) {
	bucket := newBucket()
	g := &Generator{
		Client:  bucket,
		Bucket:  "recipe-images",
		BaseURL: "https://cdn.example.com/",
		Now:     func() time.Time { return time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC) },
	}

	data, err := g.Generate(context.Background())
	require.NoError(t, err)
	rss := string(data)

	assert.Equal(t, store.RecipePrefix, bucket.prefix)
	assert.Contains(t, rss, "<title>platebot</title>")
	assert.Contains(t, rss, "https://cdn.example.com/recipes/pho.png")
	assert.Contains(t, rss, "<title>recipes/mystery.png</title>")
	assert.Equal(t, 3, strings.Count(rss, "<item>"))

	ramen := strings.Index(rss, "<title>Ramen</title>")
	pho := strings.Index(rss, "<title>Pho</title>")
	require.NotEqual(t, -1, ramen)
	require.NotEqual(t, -1, pho)
	assert.Less(t, ramen, pho, "newest first")
}

func TestGenerateHeadError(t *testing.T) {
	bucket := newBucket()
	bucket.headErr = errors.New("forbidden")
	g := &Generator{Client: bucket, Bucket: "b"}
	_, err := g.Generate(context.Background())
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	up := &memUploader{}
	g := &Generator{Client: newBucket(), Bucket: "b", BaseURL: "https://cdn"}
	key, err := g.Publish(context.Background(), up)
	require.NoError(t, err)

	assert.Equal(t, Key, key)
	require.Len(t, up.uploads, 1)
	assert.Equal(t, "feed.xml", up.uploads[0].Name)
	assert.Equal(t, "application/rss+xml", up.uploads[0].ContentType)
	assert.Contains(t, string(up.uploads[0].Data), "<rss")
}
