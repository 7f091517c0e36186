package gormstore

import (
	"time"
)

type accountModel struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	Email        string `gorm:"uniqueIndex;not null"`
	Username     string `gorm:"uniqueIndex;not null"`
	FullName     string `gorm:"not null"`
	Phone        string
	Role         string `gorm:"not null;index"`
	PasswordHash string `gorm:"not null"`
	Verified     bool   `gorm:"not null;default:false"`
	Active       bool   `gorm:"not null;default:true"`
	Approved     bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (accountModel) TableName() string { return "accounts" }

type developerProfileModel struct {
	ID        uint   `gorm:"primaryKey"`
	AccountID string `gorm:"uniqueIndex;type:uuid;not null"`
	// JSON-encoded list of lowercased skill tags.
	Skills    string `gorm:"type:text"`
	CreatedAt time.Time
}

func (developerProfileModel) TableName() string { return "developer_profiles" }

type mentorProfileModel struct {
	ID                uint   `gorm:"primaryKey"`
	AccountID         string `gorm:"uniqueIndex;type:uuid;not null"`
	Skills            string `gorm:"type:text"`
	YearsOfExperience int    `gorm:"not null"`
	ProofPath         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (mentorProfileModel) TableName() string { return "mentor_profiles" }
