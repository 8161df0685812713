package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/tipoca/internal/database"
	"github.com/BradenHooton/tipoca/internal/models"
	"github.com/google/uuid"
)

// TrackingRepository stores the devices and IP addresses an account has
// logged in from.
type TrackingRepository struct {
	db *database.DB
}

func NewTrackingRepository(db *database.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

// InsertDeviceIfNew stores the device unless an identical one is already on
// file for the account, in which case it returns nil, nil.
func (r *TrackingRepository) InsertDeviceIfNew(ctx context.Context, accountID string, d models.DeviceInfo) (*models.DeviceRecord, error) {
	query := `
		INSERT INTO account_devices (id, account_id, name, model, platform, operating_system, os_version, manufacturer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id, name, model, platform, operating_system, os_version, manufacturer) DO NOTHING
		RETURNING id, account_id, name, model, platform, operating_system, os_version, manufacturer, created_at`

	var rec models.DeviceRecord
	err := r.db.Pool.QueryRow(ctx, query,
		uuid.New().String(), accountID, d.Name, d.Model, d.Platform, d.OperatingSystem, d.OSVersion, d.Manufacturer,
	).Scan(
		&rec.ID, &rec.AccountID, &rec.Name, &rec.Model, &rec.Platform,
		&rec.OperatingSystem, &rec.OSVersion, &rec.Manufacturer, &rec.CreatedAt,
	)
	if err != nil {
		err = database.MapPostgresError(err)
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to insert device: %w", err)
	}
	return &rec, nil
}

// InsertIPIfNew stores the address and its location unless the account has
// already been seen from it, in which case it returns nil, nil.
func (r *TrackingRepository) InsertIPIfNew(ctx context.Context, accountID, ip string, loc models.IPLocation) (*models.IPRecord, error) {
	query := `
		INSERT INTO account_ip_addresses (id, account_id, ip, continent, country, region, city, lat, lon, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (account_id, ip) DO NOTHING
		RETURNING id, account_id, ip, continent, country, region, city, lat, lon, timezone, created_at`

	var rec models.IPRecord
	err := r.db.Pool.QueryRow(ctx, query,
		uuid.New().String(), accountID, ip,
		loc.Continent, loc.Country, loc.Region, loc.City, loc.Lat, loc.Lon, loc.Timezone,
	).Scan(
		&rec.ID, &rec.AccountID, &rec.IP, &rec.Continent, &rec.Country, &rec.Region,
		&rec.City, &rec.Lat, &rec.Lon, &rec.Timezone, &rec.CreatedAt,
	)
	if err != nil {
		err = database.MapPostgresError(err)
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to insert ip address: %w", err)
	}
	return &rec, nil
}
