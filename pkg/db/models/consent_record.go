package models

import (
	"time"

	"github.com/google/uuid"
)

// ConsentRecord captures the GDPR consent given at checkout time.
type ConsentRecord struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	IPAddress            *string   `gorm:"column:ip_address"`
	UserAgent            *string   `gorm:"column:user_agent"`
	PrivacyPolicyVersion string    `gorm:"column:privacy_policy_version;not null;default:'1.0'"`
	ConsentedAt          time.Time `gorm:"column:consented_at;autoCreateTime"`
}
