package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dxbfab/site/internal/db"
	"github.com/dxbfab/site/internal/validation"
)

// DefaultSiteName is used until an operator sets one.
const DefaultSiteName = "DXB Fabrication"

// ErrNotifyEmailInvalid 表示通知收件人不是合法邮箱。
var ErrNotifyEmailInvalid = errors.New("notification email is invalid")

// SystemSettings 描述后台可配置的系统信息。
type SystemSettings struct {
	SiteName           string `json:"site_name"`
	ContactNotifyEmail string `json:"contact_notify_email"`
}

// SystemSettingsInput 用于更新系统设置。
type SystemSettingsInput struct {
	SiteName           string `json:"site_name"`
	ContactNotifyEmail string `json:"contact_notify_email"`
}

// SystemSettingService 提供系统设置的读取与更新能力。
type SystemSettingService struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewSystemSettingService 构造 SystemSettingService。
func NewSystemSettingService(gdb *gorm.DB, v *validation.Validator) *SystemSettingService {
	if v == nil {
		v = validation.New()
	}
	return &SystemSettingService{db: gdb, validator: v}
}

var settingKeys = []string{
	db.SettingKeySiteName,
	db.SettingKeyContactNotifyEmail,
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	result := SystemSettings{SiteName: DefaultSiteName}

	var records []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		switch record.Key {
		case db.SettingKeySiteName:
			if strings.TrimSpace(record.Value) != "" {
				result.SiteName = record.Value
			}
		case db.SettingKeyContactNotifyEmail:
			result.ContactNotifyEmail = record.Value
		}
	}

	return result, nil
}

// UpdateSettings 保存系统设置，未填写站点名称时回退默认值。
func (s *SystemSettingService) UpdateSettings(input SystemSettingsInput) (SystemSettings, error) {
	sanitized := SystemSettings{
		SiteName:           strings.TrimSpace(input.SiteName),
		ContactNotifyEmail: strings.ToLower(strings.TrimSpace(input.ContactNotifyEmail)),
	}
	if sanitized.SiteName == "" {
		sanitized.SiteName = DefaultSiteName
	}
	if err := s.validator.Var(sanitized.ContactNotifyEmail, "omitempty,email,max=255"); err != nil {
		return SystemSettings{}, ErrNotifyEmailInvalid
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertSetting(tx, db.SettingKeySiteName, sanitized.SiteName); err != nil {
			return err
		}
		return upsertSetting(tx, db.SettingKeyContactNotifyEmail, sanitized.ContactNotifyEmail)
	})
	if err != nil {
		return SystemSettings{}, fmt.Errorf("update system settings: %w", err)
	}

	return sanitized, nil
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}
