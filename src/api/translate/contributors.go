package translate

import (
	"context"
	"errors"
	"strings"

	"github.com/productporter/productporter/src/api/types"
	"gorm.io/gorm"
)

// Contributor is one attribution entry.
type Contributor struct {
	Username string `json:"username"`
	Nickname string `json:"nickname,omitempty"`
	Display  string `json:"display"`
}

func (c Contributor) displayName() string {
	if c.Display != "" {
		return c.Display
	}
	if c.Nickname != "" {
		return c.Nickname
	}
	return c.Username
}

// Attribution is the rendered contributor list of one field, in the order
// editors first committed, plus the lock holder when the field is locked.
type Attribution struct {
	Editors  []Contributor `json:"editors"`
	LockedBy *Contributor  `json:"locked_by,omitempty"`
}

// String renders the list the way the attribution line is displayed.
func (a Attribution) String() string {
	parts := make([]string, 0, len(a.Editors))
	for _, c := range a.Editors {
		parts = append(parts, "@"+c.displayName())
	}
	out := "edit by " + strings.Join(parts, " ")
	if a.LockedBy != nil {
		out += " - locked by @" + a.LockedBy.displayName()
	}
	return out
}

// addEditor records requester as a contributor of (product, field). The
// unique index makes it a no-op when already present, so attribution never
// duplicates and never shrinks.
func addEditor(db *gorm.DB, productID uint64, kind types.FieldKind, userID uint64) error {
	row := types.FieldEditor{ProductID: productID, Field: kind.String(), UserID: userID}
	return db.Where(types.FieldEditor{
		ProductID: productID,
		Field:     kind.String(),
		UserID:    userID,
	}).FirstOrCreate(&row).Error
}

// Contributors builds the attribution of a field in insertion order.
func (s *Service) Contributors(ctx context.Context, product *types.Product, kind types.FieldKind) (Attribution, error) {
	var rows []types.FieldEditor
	err := s.db.WithContext(ctx).Preload("User").
		Where("product_id = ? AND field = ?", product.ID, kind.String()).
		Order("id").Find(&rows).Error
	if err != nil {
		return Attribution{}, err
	}

	attr := Attribution{Editors: make([]Contributor, 0, len(rows))}
	for _, row := range rows {
		attr.Editors = append(attr.Editors, Contributor{
			Username: row.User.Username,
			Nickname: row.User.Nickname,
			Display:  row.User.DisplayName(),
		})
	}

	view := product.Field(kind)
	if view.Locked && view.LockedByID != nil {
		var locker types.User
		err := s.db.WithContext(ctx).First(&locker, *view.LockedByID).Error
		if err == nil {
			attr.LockedBy = &Contributor{
				Username: locker.Username,
				Nickname: locker.Nickname,
				Display:  locker.DisplayName(),
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Attribution{}, err
		}
	}
	return attr, nil
}
