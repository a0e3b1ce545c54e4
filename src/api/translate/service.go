package translate

import (
	"context"
	"errors"

	"github.com/microcosm-cc/bluemonday"
	"github.com/productporter/productporter/src/api/tags"
	"github.com/productporter/productporter/src/api/types"
	"gorm.io/gorm"
)

// Liveness answers whether a user is currently online. The heartbeat is
// the lease clock: a soft claim expires the moment its holder goes
// offline, with no timer of its own.
type Liveness interface {
	IsOnline(ctx context.Context, username string) (bool, error)
}

// Service owns the per-field edit-lock state machine. It is the only
// writer of claim and lock state and the only trigger of contributor and
// tag updates.
type Service struct {
	db       *gorm.DB
	liveness Liveness
	sanitize *bluemonday.Policy
}

func NewService(db *gorm.DB, liveness Liveness) *Service {
	return &Service{
		db:       db,
		liveness: liveness,
		sanitize: bluemonday.UGCPolicy(),
	}
}

// AcquireResult carries the editing context handed to the client.
type AcquireResult struct {
	PostID string
	Field  types.FieldKind
	Value  *string
	Tags   []string
}

// Acquire claims (postID, kind) for requester.
//
// A hard lock rejects every acquire. An outstanding claim by someone else
// rejects the acquire only while that holder is online; an offline
// holder's claim is stale and is silently taken over. Re-acquiring a
// claim already held by requester is a no-op refresh.
//
// The claim write is conditional on the claim value read during the
// decision; losing that race returns ErrConflict.
func (s *Service) Acquire(ctx context.Context, postID string, kind types.FieldKind, requester *types.User) (*AcquireResult, error) {
	if !CanTranslate(requester) {
		return nil, ErrAuthRequired
	}

	var product types.Product
	if err := s.db.WithContext(ctx).First(&product, "post_id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	view := product.Field(kind)
	if view.Locked {
		return nil, ErrFieldLocked
	}

	held := view.EditingUserID != nil && *view.EditingUserID == requester.ID
	if view.EditingUserID != nil && !held {
		var holder types.User
		err := s.db.WithContext(ctx).First(&holder, *view.EditingUserID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Holder account is gone; the claim is stale.
		case err != nil:
			return nil, err
		default:
			online, err := s.liveness.IsOnline(ctx, holder.Username)
			if err != nil {
				return nil, err
			}
			if online {
				return nil, &EditConflictError{Field: kind.String(), Holder: holder.Username}
			}
		}
	}

	if !held {
		q := s.db.WithContext(ctx).Model(&types.Product{}).Where("id = ?", product.ID)
		if view.EditingUserID == nil {
			q = q.Where(kind.ClaimColumn() + " IS NULL")
		} else {
			q = q.Where(kind.ClaimColumn()+" = ?", *view.EditingUserID)
		}
		res := q.Update(kind.ClaimColumn(), requester.ID)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrConflict
		}
	}

	tagNames, err := tags.Names(s.db.WithContext(ctx), &product)
	if err != nil {
		return nil, err
	}
	return &AcquireResult{
		PostID: product.PostID,
		Field:  kind,
		Value:  view.Value,
		Tags:   tagNames,
	}, nil
}

// CommitPayload is the decoded commit body. Tags is required for the
// tagline field and ignored for the intro field.
type CommitPayload struct {
	Canceled bool
	Value    string
	Tags     []string
}

// CommitResult carries the persisted outcome of a non-canceled commit.
type CommitResult struct {
	PostID       string
	Field        types.FieldKind
	Canceled     bool
	Value        string
	Contributors Attribution
	Tags         []string
}

// Commit finishes an edit of (postID, kind).
//
// A canceled commit clears the claim and nothing else; it deliberately
// skips lock and ownership checks, so any signed-in user may release a
// claim. A value commit sanitizes and stores the value, replaces the tag
// set (tagline only), clears the claim and appends requester to the
// field's contributors, all in one transaction. A hard lock does not
// block commits; it only blocks acquire.
func (s *Service) Commit(ctx context.Context, postID string, kind types.FieldKind, requester *types.User, payload CommitPayload) (*CommitResult, error) {
	if !CanTranslate(requester) {
		return nil, ErrAuthRequired
	}

	var product types.Product
	if err := s.db.WithContext(ctx).First(&product, "post_id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if payload.Canceled {
		err := s.db.WithContext(ctx).Model(&product).
			Update(kind.ClaimColumn(), gorm.Expr("NULL")).Error
		if err != nil {
			return nil, err
		}
		return &CommitResult{PostID: product.PostID, Field: kind, Canceled: true}, nil
	}

	if kind == types.FieldTagline && payload.Tags == nil {
		return nil, ErrInvalidPayload
	}

	value := s.sanitize.Sanitize(payload.Value)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if kind == types.FieldTagline {
			if err := tags.Replace(tx, &product, payload.Tags); err != nil {
				return err
			}
		}
		updates := map[string]interface{}{
			kind.ValueColumn(): value,
			kind.ClaimColumn(): nil,
		}
		if err := tx.Model(&types.Product{}).Where("id = ?", product.ID).Updates(updates).Error; err != nil {
			return err
		}
		return addEditor(tx, product.ID, kind, requester.ID)
	})
	if err != nil {
		return nil, err
	}

	contributors, err := s.Contributors(ctx, &product, kind)
	if err != nil {
		return nil, err
	}
	tagNames, err := tags.Names(s.db.WithContext(ctx), &product)
	if err != nil {
		return nil, err
	}
	return &CommitResult{
		PostID:       product.PostID,
		Field:        kind,
		Value:        value,
		Contributors: contributors,
		Tags:         tagNames,
	}, nil
}

// SetLock sets or clears the moderator hard lock of (postID, kind).
// Moderator-only. Idempotent, and never touches an outstanding claim; the
// lock wins over any in-flight claim on the next acquire attempt.
func (s *Service) SetLock(ctx context.Context, postID string, kind types.FieldKind, requester *types.User, locked bool) (Attribution, error) {
	if requester == nil {
		return Attribution{}, ErrAuthRequired
	}
	if !CanModerate(requester) {
		return Attribution{}, ErrPermissionDenied
	}

	var product types.Product
	if err := s.db.WithContext(ctx).First(&product, "post_id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Attribution{}, ErrNotFound
		}
		return Attribution{}, err
	}

	updates := map[string]interface{}{
		kind.LockedColumn():   locked,
		kind.LockedByColumn(): nil,
	}
	if locked {
		updates[kind.LockedByColumn()] = requester.ID
	}
	if err := s.db.WithContext(ctx).Model(&types.Product{}).
		Where("id = ?", product.ID).Updates(updates).Error; err != nil {
		return Attribution{}, err
	}

	// Re-read so the attribution reflects the new lock state.
	if err := s.db.WithContext(ctx).First(&product, product.ID).Error; err != nil {
		return Attribution{}, err
	}
	return s.Contributors(ctx, &product, kind)
}
