package service

import (
	"context"
	"sort"
	"strconv"

	"meetly/internal/domain"
	"meetly/internal/models"
	"meetly/internal/repository"
)

// editableSettings lists the keys admins may change. All hold amounts in the
// smallest currency unit.
var editableSettings = map[string]bool{
	domain.SettingReferralBonusReferrer: true,
	domain.SettingReferralBonusReferred: true,
}

// DefaultSettings seeds system_settings on first start.
func DefaultSettings() map[string]string {
	return map[string]string{
		domain.SettingReferralBonusReferrer: strconv.FormatInt(domain.DefaultReferralBonusReferrer, 10),
		domain.SettingReferralBonusReferred: strconv.FormatInt(domain.DefaultReferralBonusReferred, 10),
	}
}

type SettingsService struct {
	store repository.Store
}

func NewSettingsService(store repository.Store) *SettingsService {
	return &SettingsService{store: store}
}

func (s *SettingsService) All(ctx context.Context) ([]models.SystemSetting, error) {
	list, err := s.store.Settings().GetAll(ctx)
	if err != nil {
		return nil, domain.Internal("could not load settings", err)
	}
	return list, nil
}

// Update validates every value before writing any of them.
func (s *SettingsService) Update(ctx context.Context, adminID uint, values map[string]string) error {
	if len(values) == 0 {
		return domain.Errorf(domain.KindValidation, "no settings given")
	}
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if !editableSettings[k] {
			return domain.Errorf(domain.KindValidation, "unknown setting %q", k)
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return domain.Errorf(domain.KindValidation, "setting %q must be a non-negative integer", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return s.store.Transaction(ctx, func(tx repository.Repos) error {
		meta := make(map[string]interface{}, len(keys))
		for _, k := range keys {
			if err := tx.Settings().Set(ctx, k, values[k], &adminID); err != nil {
				return domain.Internal("could not save setting", err)
			}
			meta[k] = values[k]
		}
		return audit(ctx, tx, adminID, "settings.update", "system_settings", 0, meta)
	})
}
