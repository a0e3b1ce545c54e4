package webserver

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/productporter/productporter/src/api/translate"
	"github.com/productporter/productporter/src/api/types"
	"gorm.io/gorm"
)

// Translate exposes the acquire/commit/lock operations of the field lock
// state machine.
type Translate struct {
	db  *gorm.DB
	svc *translate.Service
}

func NewTranslate(db *gorm.DB, svc *translate.Service) Translate {
	return Translate{db: db, svc: svc}
}

// respondError maps the core error taxonomy onto the wire contract.
func respondError(c *gin.Context, postid, field string, err error) {
	var conflict *translate.EditConflictError
	switch {
	case errors.Is(err, translate.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, gin.H{
			"status": "error", "postid": postid, "error": "Please sign in first",
		})
	case errors.Is(err, translate.ErrFieldLocked):
		c.JSON(http.StatusForbidden, gin.H{
			"status": "error", "postid": postid,
			"error": fmt.Sprintf("%s is locked. Please contact administrator.", field),
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error", "postid": postid, "error": conflict.Error(),
		})
	case errors.Is(err, translate.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error", "postid": postid, "error": "post not found",
		})
	case errors.Is(err, translate.ErrInvalidPayload):
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"status": "error", "message": "invalid json data",
		})
	case errors.Is(err, translate.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{
			"status": "error", "postid": postid, "error": "claim changed, please retry",
		})
	case errors.Is(err, translate.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{
			"status": "error", "postid": postid, "error": "moderator required",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error", "postid": postid, "error": err.Error(),
		})
	}
}

// Acquire claims a field for the requester: GET /translate?postid=&field=
func (h Translate) Acquire(c *gin.Context) {
	postid := c.Query("postid")
	fieldName := c.DefaultQuery("field", "ctagline")
	kind, ok := types.ParseFieldKind(fieldName)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error", "postid": postid, "error": "unknown field " + fieldName,
		})
		return
	}

	log.Printf("acquire translate %s for post %s", fieldName, postid)
	res, err := h.svc.Acquire(c.Request.Context(), postid, kind, currentUser(c))
	if err != nil {
		respondError(c, postid, fieldName, err)
		return
	}

	value := ""
	if res.Value != nil {
		value = *res.Value
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"postid": res.PostID,
		"field":  fieldName,
		"value":  value,
		"tags":   strings.Join(res.Tags, "; "),
	})
}

// Commit finishes an edit: PUT|POST /translate with a JSON body.
func (h Translate) Commit(c *gin.Context) {
	var req struct {
		PostID   string   `json:"postid"`
		Field    string   `json:"field"`
		Value    string   `json:"value"`
		Tags     []string `json:"tags"`
		Canceled bool     `json:"canceled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"status": "error", "message": "invalid json data",
		})
		return
	}

	kind, ok := types.ParseFieldKind(req.Field)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error", "postid": req.PostID, "error": "unknown field " + req.Field,
		})
		return
	}

	log.Printf("commit %s for post %s", req.Field, req.PostID)
	res, err := h.svc.Commit(c.Request.Context(), req.PostID, kind, currentUser(c), translate.CommitPayload{
		Canceled: req.Canceled,
		Value:    req.Value,
		Tags:     req.Tags,
	})
	if err != nil {
		respondError(c, req.PostID, req.Field, err)
		return
	}

	if res.Canceled {
		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"postid": res.PostID,
			"field":  req.Field,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"postid":            res.PostID,
		"field":             req.Field,
		"value":             res.Value,
		"contributors":      res.Contributors,
		"contributors_text": res.Contributors.String(),
		"tags":              res.Tags,
	})
}

// Lock sets or clears the moderator hard lock: GET /lock?postid=&op=&field=
func (h Translate) Lock(c *gin.Context) {
	postid := c.Query("postid")
	op := c.DefaultQuery("op", "lock")
	fieldName := c.DefaultQuery("field", "ctagline")
	kind, ok := types.ParseFieldKind(fieldName)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error", "postid": postid, "error": "unknown field " + fieldName,
		})
		return
	}

	attr, err := h.svc.SetLock(c.Request.Context(), postid, kind, currentUser(c), strings.EqualFold(op, "lock"))
	if err != nil {
		respondError(c, postid, fieldName, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"postid":            postid,
		"contributors":      attr,
		"contributors_text": attr.String(),
	})
}
