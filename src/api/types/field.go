package types

// FieldKind selects one of the two translatable fields of a product.
// Every per-field column is reached through this type so that a new
// field kind fails to compile until all the switches below learn it.
type FieldKind int

const (
	FieldTagline FieldKind = iota
	FieldIntro
)

// ParseFieldKind maps the wire names used by the API.
func ParseFieldKind(s string) (FieldKind, bool) {
	switch s {
	case "ctagline":
		return FieldTagline, true
	case "cintro":
		return FieldIntro, true
	}
	return 0, false
}

func (k FieldKind) String() string {
	if k == FieldIntro {
		return "cintro"
	}
	return "ctagline"
}

// ValueColumn returns the DB column holding the translated value.
func (k FieldKind) ValueColumn() string {
	if k == FieldIntro {
		return "c_intro"
	}
	return "c_tagline"
}

// LockedColumn returns the DB column holding the hard-lock flag.
func (k FieldKind) LockedColumn() string {
	if k == FieldIntro {
		return "c_intro_locked"
	}
	return "c_tagline_locked"
}

// LockedByColumn returns the DB column referencing the locking moderator.
func (k FieldKind) LockedByColumn() string {
	if k == FieldIntro {
		return "c_intro_locked_by_id"
	}
	return "c_tagline_locked_by_id"
}

// ClaimColumn returns the DB column referencing the soft-claim holder.
func (k FieldKind) ClaimColumn() string {
	if k == FieldIntro {
		return "c_intro_editing_user_id"
	}
	return "c_tagline_editing_user_id"
}

// FieldView is a point-in-time snapshot of one translatable field.
type FieldView struct {
	Value         *string
	Locked        bool
	LockedByID    *uint64
	EditingUserID *uint64
}

// Field snapshots the chosen translatable field of p.
func (p *Product) Field(k FieldKind) FieldView {
	switch k {
	case FieldIntro:
		return FieldView{
			Value:         p.CIntro,
			Locked:        p.CIntroLocked,
			LockedByID:    p.CIntroLockedByID,
			EditingUserID: p.CIntroEditingUserID,
		}
	default:
		return FieldView{
			Value:         p.CTagline,
			Locked:        p.CTaglineLocked,
			LockedByID:    p.CTaglineLockedByID,
			EditingUserID: p.CTaglineEditingUserID,
		}
	}
}
