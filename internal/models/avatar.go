package models

import (
	"encoding/base64"
	"time"
)

// MaxAvatarBytes caps an uploaded avatar image.
const MaxAvatarBytes = 2 << 20

// Avatar is the image attached to a profile, stored inline.
type Avatar struct {
	AccountID    string
	OriginalName string
	MimeType     string
	Size         int
	Data         []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AvatarMimeTypeAllowed reports whether an image type can be stored as an
// avatar.
func AvatarMimeTypeAllowed(mimeType string) bool {
	switch mimeType {
	case "image/png", "image/jpeg", "image/jpg":
		return true
	}
	return false
}

// DataURL renders the avatar for the JSON API. A nil avatar is "".
func (a *Avatar) DataURL() string {
	if a == nil {
		return ""
	}
	return "data:" + a.MimeType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}
