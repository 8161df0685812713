package models

import "time"

// DeviceInfo is the fingerprint a client reports on login and signup.
type DeviceInfo struct {
	Name            string `json:"name,omitempty"`
	Model           string `json:"model" validate:"required"`
	Platform        string `json:"platform" validate:"required"`
	OperatingSystem string `json:"operatingSystem" validate:"required"`
	OSVersion       string `json:"osVersion" validate:"required"`
	Manufacturer    string `json:"manufacturer" validate:"required"`
}

type DeviceRecord struct {
	ID        string
	AccountID string
	DeviceInfo
	CreatedAt time.Time
}

// IPLocation is what the geolocation lookup resolves an address to.
type IPLocation struct {
	Continent string  `json:"continent"`
	Country   string  `json:"country"`
	Region    string  `json:"region"`
	City      string  `json:"city"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timezone  string  `json:"timezone"`
}

type IPRecord struct {
	ID        string
	AccountID string
	IP        string
	IPLocation
	CreatedAt time.Time
}
