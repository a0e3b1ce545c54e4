package translate

import "github.com/productporter/productporter/src/api/types"

// CanTranslate: any signed-in user may claim and commit translations.
func CanTranslate(u *types.User) bool {
	return u != nil
}

// CanModerate: hard locks and administrative pulls need the moderator flag.
func CanModerate(u *types.User) bool {
	return u != nil && u.Moderator
}
