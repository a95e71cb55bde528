package database

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Username     string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         string     `gorm:"size:16;not null;default:user" json:"role"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Setting struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	Key       string    `gorm:"size:128;uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuditLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Username  string    `gorm:"size:64" json:"username"`
	Action    string    `gorm:"size:64;index" json:"action"`
	Result    string    `gorm:"size:16" json:"result"`
	Detail    string    `gorm:"type:text" json:"detail"`
	IP        string    `gorm:"size:64" json:"ip"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Assignment is a record pre-filled from a screenshot and edited by its owner.
type Assignment struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	OwnerID       uint           `gorm:"index;not null" json:"ownerId"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	Class         string         `gorm:"size:255;not null" json:"class"`
	ExtractedText string         `gorm:"type:text;not null" json:"extractedText"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// RemediationRun is one uploaded document and everything the backend said
// about it. Report payloads are stored as JSON text.
type RemediationRun struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	UID                string    `gorm:"size:36;uniqueIndex;not null" json:"uid"`
	OwnerID            uint      `gorm:"index;not null" json:"ownerId"`
	FileName           string    `gorm:"size:255;not null" json:"fileName"`
	FileType           string    `gorm:"size:16" json:"fileType"`
	SHA256             string    `gorm:"size:64;index" json:"sha256"`
	State              string    `gorm:"size:16;index;not null" json:"state"`
	Error              string    `gorm:"type:text" json:"error,omitempty"`
	Mock               bool      `json:"mock"`
	Authoritative      bool      `json:"authoritative"`
	DocumentProtected  bool      `json:"documentProtected"`
	FixedCount         int       `json:"fixedCount"`
	FlaggedCount       int       `json:"flaggedCount"`
	ConfirmedCount     int       `json:"confirmedCount"`
	ReportJSON         string    `gorm:"type:text" json:"-"`
	RecheckJSON        string    `gorm:"type:text" json:"-"`
	ReconciliationJSON string    `gorm:"type:text" json:"-"`
	OriginalPath       string    `gorm:"size:512" json:"-"`
	RemediatedPath     string    `gorm:"size:512" json:"-"`
	RemediatedName     string    `gorm:"size:255" json:"remediatedName,omitempty"`
	CreatedAt          time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type BatchSession struct {
	ID                uint       `gorm:"primarykey" json:"id"`
	SessionID         string     `gorm:"size:128;uniqueIndex;not null" json:"sessionId"`
	OwnerID           uint       `gorm:"index;not null" json:"ownerId"`
	State             string     `gorm:"size:16;index;not null" json:"state"`
	ExpiresInSeconds  int        `json:"expiresInSeconds"`
	FileCount         int        `json:"fileCount"`
	KeepAliveFailures int        `json:"keepAliveFailures"`
	LastKeepAlive     *time.Time `json:"lastKeepAlive,omitempty"`
	LastActivity      time.Time  `json:"lastActivity"`
	CreatedAt         time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type BatchFile struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	SessionID   string    `gorm:"size:128;index;not null" json:"sessionId"`
	FileName    string    `gorm:"size:255;not null" json:"fileName"`
	Status      string    `gorm:"size:32" json:"status"`
	Error       string    `gorm:"type:text" json:"error,omitempty"`
	SummaryJSON string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}
