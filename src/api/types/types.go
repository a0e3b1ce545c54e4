package types

import "time"

// Registered editors and moderators
type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"size:64;uniqueIndex;not null"`
	Nickname  string `gorm:"size:64"`
	Email     string `gorm:"size:256"`
	Password  string `gorm:"size:128;not null" json:"-"` // bcrypt hash
	Moderator bool   `gorm:"default:false"`
	CreatedAt time.Time
}

// DisplayName prefers the nickname, as the attribution lists do.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// Crowd-sourced product posts. Tagline and Intro keep the original
// upstream content; CTagline and CIntro carry the translations. Each
// translated field has its own hard-lock flag, soft claim holder and
// contributor set.
type Product struct {
	ID          uint64 `gorm:"primaryKey"`
	PostID      string `gorm:"size:32;uniqueIndex;not null"`
	Name        string `gorm:"size:255"`
	Tagline     string `gorm:"size:512"`
	Intro       string `gorm:"type:text"`
	URL         string `gorm:"size:512"`
	Votes       int    `gorm:"default:0"`
	Day         string `gorm:"size:10;index"` // upstream feed date, YYYY-MM-DD
	ContentHash uint64 `gorm:"default:0"`     // xxhash of upstream content, used by ingest

	CTagline              *string `gorm:"size:512"`
	CTaglineLocked        bool    `gorm:"default:false"`
	CTaglineLockedByID    *uint64
	CTaglineEditingUserID *uint64
	CTaglineLockedBy      *User `gorm:"foreignKey:CTaglineLockedByID"`
	CTaglineEditingUser   *User `gorm:"foreignKey:CTaglineEditingUserID"`

	CIntro              *string `gorm:"type:text"`
	CIntroLocked        bool    `gorm:"default:false"`
	CIntroLockedByID    *uint64
	CIntroEditingUserID *uint64
	CIntroLockedBy      *User `gorm:"foreignKey:CIntroLockedByID"`
	CIntroEditingUser   *User `gorm:"foreignKey:CIntroEditingUserID"`

	Tags      []Tag `gorm:"many2many:product_tags"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Name-keyed labels, created on first use
type Tag struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time
}

// Per-field contributor attribution. One row per (product, field, user);
// row order is the attribution display order.
type FieldEditor struct {
	ID        uint64    `gorm:"primaryKey"`
	ProductID uint64    `gorm:"uniqueIndex:idx_field_editor;not null"`
	Field     string    `gorm:"uniqueIndex:idx_field_editor;size:16;not null"`
	UserID    uint64    `gorm:"uniqueIndex:idx_field_editor;not null"`
	CreatedAt time.Time
	Product   Product `gorm:"foreignKey:ProductID"`
	User      User    `gorm:"foreignKey:UserID"`
}
