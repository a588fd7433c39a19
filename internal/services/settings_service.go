package services

import (
	"gorm.io/gorm"

	"github.com/example/arister/internal/models"
)

// SettingsService exposes the settings singleton with a
// find-or-create-default accessor.
type SettingsService struct {
	db *gorm.DB
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns the settings row, creating it with defaults on first use.
func (s *SettingsService) Get() (*models.Settings, error) {
	var settings models.Settings
	err := s.db.First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	settings = models.DefaultSettings()
	if err := s.db.Create(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// Save persists the settings row.
func (s *SettingsService) Save(settings *models.Settings) error {
	return s.db.Save(settings).Error
}
