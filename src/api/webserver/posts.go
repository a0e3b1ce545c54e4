package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/productporter/productporter/src/api/data"
	"github.com/productporter/productporter/src/api/ingest"
	"github.com/productporter/productporter/src/api/tags"
	"github.com/productporter/productporter/src/api/translate"
	"github.com/productporter/productporter/src/api/types"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Posts serves the product listings and the moderator pull/briefing views.
type Posts struct {
	db   *gorm.DB
	rdb  *redis.Client
	svc  *translate.Service
	feed *ingest.Service
}

func NewPosts(db *gorm.DB, rdb *redis.Client, svc *translate.Service, feed *ingest.Service) Posts {
	return Posts{db: db, rdb: rdb, svc: svc, feed: feed}
}

// latestDay resolves the default listing day: the cached feed day when
// available, otherwise the newest day in the store.
func (h Posts) latestDay(c *gin.Context) string {
	if h.rdb != nil {
		if day, err := data.LatestDay(c.Request.Context(), h.rdb); err == nil && day != "" {
			return day
		}
	}
	var day string
	h.db.Model(&types.Product{}).Select("COALESCE(MAX(day), '')").Scan(&day)
	return day
}

func productJSON(p *types.Product) gin.H {
	tagNames := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tagNames = append(tagNames, t.Name)
	}
	return gin.H{
		"postid":   p.PostID,
		"name":     p.Name,
		"tagline":  p.Tagline,
		"intro":    p.Intro,
		"ctagline": p.CTagline,
		"cintro":   p.CIntro,
		"url":      p.URL,
		"votes":    p.Votes,
		"day":      p.Day,
		"tags":     tagNames,
	}
}

// List returns the posts of a day: GET /posts?day=
func (h Posts) List(c *gin.Context) {
	day := c.Query("day")
	if day == "" {
		day = h.latestDay(c)
	}

	var products []types.Product
	if err := h.db.Preload("Tags").Where("day = ?", day).
		Order("votes DESC").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(products))
	for i := range products {
		out = append(out, productJSON(&products[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"day":    day,
		"count":  len(out),
		"posts":  out,
	})
}

// Detail returns one post with both field attributions: GET /posts/:postid
func (h Posts) Detail(c *gin.Context) {
	postid := c.Param("postid")

	var p types.Product
	if err := h.db.Preload("Tags").First(&p, "post_id = ?", postid).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "postid": postid, "error": "post not found"})
		return
	}

	taglineAttr, err := h.svc.Contributors(c.Request.Context(), &p, types.FieldTagline)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	introAttr, err := h.svc.Contributors(c.Request.Context(), &p, types.FieldIntro)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	body := productJSON(&p)
	body["ctagline_locked"] = p.CTaglineLocked
	body["cintro_locked"] = p.CIntroLocked
	body["ctagline_contributors"] = taglineAttr
	body["cintro_contributors"] = introAttr
	c.JSON(http.StatusOK, gin.H{"status": "success", "post": body})
}

// TagsIndex lists every tag name: GET /tags
func (h Posts) TagsIndex(c *gin.Context) {
	names, err := tags.AllNames(h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "tags": names})
}

// ByTag lists the posts carrying a tag: GET /tags/:name
func (h Posts) ByTag(c *gin.Context) {
	name := c.Param("name")

	var products []types.Product
	err := h.db.Preload("Tags").
		Joins("JOIN product_tags ON product_tags.product_id = products.id").
		Joins("JOIN tags ON tags.id = product_tags.tag_id").
		Where("tags.name = ?", name).
		Order("products.votes DESC").
		Find(&products).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(products))
	for i := range products {
		out = append(out, productJSON(&products[i]))
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "tag": name, "count": len(out), "posts": out})
}

// Pull ingests one day of the upstream feed: GET /pull?day= (moderator).
func (h Posts) Pull(c *gin.Context) {
	day := c.Query("day")
	count, err := h.feed.PullDay(c.Request.Context(), day)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "pulled": count})
}

// Briefing thanks the contributors of a day's finalized taglines:
// GET /briefing/:day (moderator). A tagline counts as finalized once it
// has a translation and its hard lock is set.
func (h Posts) Briefing(c *gin.Context) {
	day := c.Param("day")

	var products []types.Product
	if err := h.db.Where("day = ?", day).Order("votes DESC").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	seen := map[string]bool{}
	editors := []translate.Contributor{}
	finalized := []string{}
	for i := range products {
		p := &products[i]
		if p.CTagline == nil || !p.CTaglineLocked {
			continue
		}
		finalized = append(finalized, p.PostID)
		attr, err := h.svc.Contributors(c.Request.Context(), p, types.FieldTagline)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
			return
		}
		for _, e := range attr.Editors {
			if !seen[e.Username] {
				seen[e.Username] = true
				editors = append(editors, e)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"day":       day,
		"count":     len(products),
		"finalized": finalized,
		"editors":   editors,
	})
}
