package ingest

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/productporter/productporter/src/api/data"
	"github.com/productporter/productporter/src/api/types"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Service upserts upstream feed posts into the product store. Products
// are deduplicated by postid; translated fields are never touched, so
// re-pulling a day cannot clobber editor work.
type Service struct {
	db     *gorm.DB
	client *Client
	rdb    *redis.Client // optional latest-day cache
}

func NewService(db *gorm.DB, client *Client, rdb *redis.Client) *Service {
	return &Service{db: db, client: client, rdb: rdb}
}

func contentHash(p Post) uint64 {
	h := xxhash.NewS64(0)
	h.WriteString(p.Name)
	h.WriteString("|")
	h.WriteString(p.Tagline)
	h.WriteString("|")
	h.WriteString(p.Description)
	return h.Sum64()
}

// PullDay fetches one day of the upstream feed and saves it, returning
// the number of created or updated products. Records whose upstream
// content hash is unchanged are skipped.
func (s *Service) PullDay(ctx context.Context, day string) (int, error) {
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	}

	posts, err := s.client.Posts(ctx, day)
	if err != nil {
		return 0, err
	}

	saved := 0
	for _, post := range posts {
		postID := strconv.FormatUint(post.ID, 10)
		hash := contentHash(post)

		var existing types.Product
		err := s.db.WithContext(ctx).First(&existing, "post_id = ?", postID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			p := types.Product{
				PostID:      postID,
				Name:        post.Name,
				Tagline:     post.Tagline,
				Intro:       post.Description,
				URL:         post.RedirectURL,
				Votes:       post.VotesCount,
				Day:         day,
				ContentHash: hash,
			}
			if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
				return saved, err
			}
			saved++
		case err != nil:
			return saved, err
		case existing.ContentHash == hash:
			// Unchanged upstream; only votes move.
			if existing.Votes != post.VotesCount {
				if err := s.db.WithContext(ctx).Model(&existing).Update("votes", post.VotesCount).Error; err != nil {
					return saved, err
				}
			}
		default:
			updates := map[string]interface{}{
				"name":         post.Name,
				"tagline":      post.Tagline,
				"intro":        post.Description,
				"url":          post.RedirectURL,
				"votes":        post.VotesCount,
				"content_hash": hash,
			}
			if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
				return saved, err
			}
			saved++
		}
	}

	if s.rdb != nil {
		if err := data.SetLatestDay(ctx, s.rdb, day); err != nil {
			log.Printf("ingest: cache latest day: %v", err)
		}
	}
	return saved, nil
}
