package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepo struct {
	db *gorm.DB
}

func NewSettingRepo() *SettingRepo {
	return &SettingRepo{db: DB}
}

var settingUpsert = clause.OnConflict{
	Columns:   []clause.Column{{Name: "key"}},
	DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
}

func (r *SettingRepo) Get(key string) (string, error) {
	var setting Setting
	if err := r.db.Where(&Setting{Key: key}).First(&setting).Error; err != nil {
		return "", err
	}
	return setting.Value, nil
}

// GetOr returns def when the key is missing or unreadable.
func (r *SettingRepo) GetOr(key, def string) string {
	v, err := r.Get(key)
	if err != nil {
		return def
	}
	return v
}

func (r *SettingRepo) Set(key, value string) error {
	return r.db.Clauses(settingUpsert).Create(&Setting{Key: key, Value: value}).Error
}

func (r *SettingRepo) GetAll() (map[string]string, error) {
	var settings []Setting
	if err := r.db.Find(&settings).Error; err != nil {
		return nil, err
	}
	result := make(map[string]string, len(settings))
	for _, s := range settings {
		result[s.Key] = s.Value
	}
	return result, nil
}

// GetByPrefix returns settings whose key starts with prefix.
func (r *SettingRepo) GetByPrefix(prefix string) (map[string]string, error) {
	var settings []Setting
	if err := r.db.Where("key LIKE ?", prefix+"%").Find(&settings).Error; err != nil {
		return nil, err
	}
	result := make(map[string]string, len(settings))
	for _, s := range settings {
		result[s.Key] = s.Value
	}
	return result, nil
}

func (r *SettingRepo) SetBatch(items map[string]string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range items {
			if err := tx.Clauses(settingUpsert).Create(&Setting{Key: key, Value: value}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SettingRepo) Delete(key string) error {
	return r.db.Where(&Setting{Key: key}).Delete(&Setting{}).Error
}
