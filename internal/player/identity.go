package player

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"litebans-web/internal/model"
)

// MaxNameLength is the longest valid Minecraft username.
const MaxNameLength = 16

func IsConsole(ref string) bool {
	return strings.EqualFold(strings.TrimSpace(ref), model.Console)
}

// IsUUID accepts both dashed and undashed forms.
func IsUUID(ref string) bool {
	_, err := uuid.Parse(strings.TrimSpace(ref))
	return err == nil
}

// NormalizeUUID returns the lower-case dashed form, or ref unchanged when it is
// not a UUID.
func NormalizeUUID(ref string) string {
	id, err := uuid.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return id.String()
}

// IsBedrock reports whether ref is a Geyser/Floodgate UUID: the upper 64 bits
// are zero.
func IsBedrock(ref string) bool {
	id, err := uuid.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	for _, b := range id[:8] {
		if b != 0 {
			return false
		}
	}
	return true
}

// IsName reports whether ref could be a username rather than a UUID.
func IsName(ref string) bool {
	ref = strings.TrimSpace(ref)
	return ref != "" && len(ref) <= MaxNameLength && !IsUUID(ref)
}

// Avatars builds head image URLs on the profile service.
type Avatars struct {
	BaseURL string
}

func (a Avatars) Head(ref string) string {
	return strings.TrimRight(a.BaseURL, "/") + "/player/head/" + url.PathEscape(ref) + ".png?size=32"
}

func (a Avatars) Steve() string { return a.Head("Steve") }

func (a Avatars) Console() string { return a.Head("Console") }
