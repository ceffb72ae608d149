package storage

import (
	"strings"
)

const (
	dataPrefix    = "editor.data"
	unsavedPrefix = "editor.unsavedData"
	archivePrefix = "editor.archive"
)

// Scope identifies one map version edited by one user.
type Scope struct {
	UserID  string
	MapID   string
	Version string
}

func (s Scope) join(prefix string, parts ...string) string {
	all := append([]string{prefix, s.UserID, s.MapID, s.Version}, parts...)
	return strings.Join(all, ".")
}

// MapKey is editor.data.{userId}.{mapId}.{version}.
func MapKey(s Scope) string {
	return s.join(dataPrefix)
}

// LayoutKey is editor.data.{userId}.{mapId}.{version}.{layoutId}.
func LayoutKey(s Scope, layoutID string) string {
	return s.join(dataPrefix, layoutID)
}

// UnsavedKey is editor.unsavedData.{userId}.{mapId}.{version}.
func UnsavedKey(s Scope) string {
	return s.join(unsavedPrefix)
}

// ArchiveKey is editor.archive.{mapId}.{version}. The published copy is
// shared by every user of the map, so the user is not part of the key.
func ArchiveKey(s Scope) string {
	return strings.Join([]string{archivePrefix, s.MapID, s.Version}, ".")
}
