// Package security answers authority questions about users.
package security

import (
	"strings"

	"github.com/floorplan-editor/backend/internal/models"
)

// DefaultEditAuthorities grant write access to a map.
var DefaultEditAuthorities = []string{"ROLE_MAP_EDIT", "ROLE_ADMIN"}

// HasAnyAuthority reports whether user holds at least one of authorities.
// A nil user holds nothing.
func HasAnyAuthority(user *models.User, authorities []string) bool {
	if user == nil {
		return false
	}
	for _, held := range user.Authorities {
		for _, want := range authorities {
			if strings.EqualFold(strings.TrimSpace(held), strings.TrimSpace(want)) {
				return true
			}
		}
	}
	return false
}

// CanEdit reports whether user may mutate maps. With requireAuth off every
// user can edit.
func CanEdit(user *models.User, editAuthorities []string, requireAuth bool) bool {
	if !requireAuth {
		return true
	}
	if len(editAuthorities) == 0 {
		editAuthorities = DefaultEditAuthorities
	}
	return HasAnyAuthority(user, editAuthorities)
}

// ParseAuthorities splits a comma separated authority list.
func ParseAuthorities(list string) []string {
	var out []string
	for _, a := range strings.Split(list, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
