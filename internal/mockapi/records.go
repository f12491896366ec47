package mockapi

import (
	"time"

	"github.com/coinvest-dev/coinvest/internal/models"
)

// userRecord is the stored account. Secrets never leave the backend.
type userRecord struct {
	ID                    string            `gorm:"primaryKey"`
	Email                 string            `gorm:"uniqueIndex;not null"`
	FullName              string            `gorm:"not null"`
	Role                  models.Role       `gorm:"not null"`
	PasswordHash          string            `gorm:"not null"`
	PinHash               string
	IsEmailVerified       bool
	PreferredPayoutCrypto string
	PayoutWalletAddresses map[string]string `gorm:"serializer:json"`
	Balance               float64
	Status                string `gorm:"not null;default:active"`
	OTP                   string
	OTPExpiresAt          *time.Time
	ResetToken            string `gorm:"index"`
	ResetExpiresAt        *time.Time
	CreatedAt             time.Time
}

func (userRecord) TableName() string { return "users" }

func (u *userRecord) toModel() *models.User {
	return &models.User{
		ID:                    u.ID,
		Email:                 u.Email,
		FullName:              u.FullName,
		Role:                  u.Role,
		IsEmailVerified:       u.IsEmailVerified,
		PreferredPayoutCrypto: u.PreferredPayoutCrypto,
		PayoutWalletAddresses: u.PayoutWalletAddresses,
		HasWalletPin:          u.PinHash != "",
		Balance:               u.Balance,
		Status:                u.Status,
		CreatedAt:             u.CreatedAt,
	}
}

// sessionRecord backs one session cookie
type sessionRecord struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

func (sessionRecord) TableName() string { return "sessions" }

type notificationRecord struct {
	models.InAppNotification `gorm:"embedded"`
	UserID                   string `gorm:"index;not null"`
}

func (notificationRecord) TableName() string { return "notifications" }

// settingsRecord is the singleton platform settings row
type settingsRecord struct {
	ID       uint                    `gorm:"primaryKey"`
	Settings models.PlatformSettings `gorm:"serializer:json"`
}

func (settingsRecord) TableName() string { return "settings" }

func allRecords() []interface{} {
	return []interface{}{
		&userRecord{},
		&sessionRecord{},
		&notificationRecord{},
		&settingsRecord{},
		&models.Plan{},
		&models.Investment{},
		&models.Withdrawal{},
		&models.ActivityEntry{},
	}
}
