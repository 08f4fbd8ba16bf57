package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmorgan81/platebot/internal/log"
	"github.com/dmorgan81/platebot/internal/store"
	"github.com/gorilla/feeds"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const Key = "feed.xml"

type API interface {
	s3.ListObjectsV2APIClient
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Generator builds an RSS feed of the recipe images mirrored into the bucket.
type Generator struct {
	Client  API
	Bucket  string
	BaseURL string
	Now     func() time.Time
}

func (g *Generator) Generate(ctx context.Context) ([]byte, error) {
	log.FromContextOrDiscard(ctx).WithGroup("feed").Info("generating rss feed", "bucket", g.Bucket)

	now := lo.Ternary(g.Now != nil, g.Now, time.Now)
	base := strings.TrimSuffix(g.BaseURL, "/")
	feed := feeds.Feed{
		Title:       "platebot",
		Description: "AI generated recipe images",
		Link:        &feeds.Link{Href: base},
		Updated:     now(),
	}

	pager := s3.NewListObjectsV2Paginator(g.Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.Bucket),
		Prefix: aws.String(store.RecipePrefix),
	})

	var mu sync.Mutex
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			_ = group.Wait()
			return nil, err
		}

		objs := lo.Filter(page.Contents, func(o s3types.Object, _ int) bool {
			return !strings.HasSuffix(aws.ToString(o.Key), "/")
		})

		for _, obj := range objs {
			obj := obj
			group.Go(func() error {
				out, err := g.Client.HeadObject(ctx, &s3.HeadObjectInput{
					Bucket: aws.String(g.Bucket),
					Key:    obj.Key,
				})
				if err != nil {
					return err
				}

				meta := out.Metadata
				item := &feeds.Item{
					Id:          aws.ToString(obj.Key),
					Title:       lo.Ternary(meta["recipe"] != "", meta["recipe"], aws.ToString(obj.Key)),
					Description: fmt.Sprintf("%s image for %s", lo.Ternary(meta["source"] != "", meta["source"], "recipe"), meta["recipe"]),
					Link:        &feeds.Link{Href: base + "/" + aws.ToString(obj.Key)},
					Updated:     aws.ToTime(out.LastModified),
				}
				mu.Lock()
				feed.Add(item)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	feed.Sort(func(a, b *feeds.Item) bool {
		return a.Updated.After(b.Updated)
	})
	rss, err := feed.ToRss()
	return []byte(rss), err
}

// Publish generates the feed and uploads it next to the images.
func (g *Generator) Publish(ctx context.Context, uploader store.Uploader) (string, error) {
	data, err := g.Generate(ctx)
	if err != nil {
		return "", err
	}
	err = uploader.Upload(ctx, store.UploadParams{
		Name:        Key,
		Data:        data,
		ContentType: "application/rss+xml",
	})
	return Key, err
}
