package models

import "time"

type SkinTone string

const (
	SkinToneNone        SkinTone = "NONE"
	SkinToneLight       SkinTone = "LIGHT"
	SkinToneMediumLight SkinTone = "MEDIUM_LIGHT"
	SkinToneMedium      SkinTone = "MEDIUM"
	SkinToneMediumDark  SkinTone = "MEDIUM_DARK"
	SkinToneDark        SkinTone = "DARK"
)

type Profile struct {
	AccountID string    `json:"accountId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	SkinTone  SkinTone  `json:"skinTone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultProfile is attached to every new account.
func DefaultProfile(accountID string) *Profile {
	return &Profile{AccountID: accountID, SkinTone: SkinToneNone}
}

type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	SkinTone  *SkinTone
}

func (s SkinTone) Valid() bool {
	switch s {
	case SkinToneNone, SkinToneLight, SkinToneMediumLight, SkinToneMedium, SkinToneMediumDark, SkinToneDark:
		return true
	}
	return false
}
