package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/tipoca/internal/models"
)

// TrackingService records the devices and addresses accounts sign in from.
type TrackingService struct {
	repo   TrackingRepository
	geo    GeoLookup
	logger *slog.Logger
}

func NewTrackingService(repo TrackingRepository, geo GeoLookup, logger *slog.Logger) *TrackingService {
	return &TrackingService{repo: repo, geo: geo, logger: logger}
}

// RecordIP resolves ip and stores it for the account. It returns nil when the
// account has used ip before. A failed lookup is returned, not swallowed.
func (s *TrackingService) RecordIP(ctx context.Context, ip, accountID string) (*models.IPRecord, error) {
	loc, err := s.geo.Resolve(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("resolve ip: %w", err)
	}

	rec, err := s.repo.InsertIPIfNew(ctx, accountID, ip, *loc)
	if err != nil {
		return nil, fmt.Errorf("record ip: %w", err)
	}
	if rec != nil {
		s.logger.Debug("new ip recorded", slog.String("user_id", accountID), slog.String("country", rec.Country))
	}
	return rec, nil
}

// RecordDevice stores device for the account and returns nil when an
// identical device is already on file.
func (s *TrackingService) RecordDevice(ctx context.Context, device models.DeviceInfo, accountID string) (*models.DeviceRecord, error) {
	rec, err := s.repo.InsertDeviceIfNew(ctx, accountID, device)
	if err != nil {
		return nil, fmt.Errorf("record device: %w", err)
	}
	if rec != nil {
		s.logger.Debug("new device recorded", slog.String("user_id", accountID), slog.String("model", rec.Model))
	}
	return rec, nil
}
