package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusComplete       = "Complete"
	DataFromCreate       = "Create"
	ProductionDateLayout = "2006-01-02"
)

// Rows are never removed; IsActive=false marks a deleted record.
type QCCheck struct {
	ID             uint           `gorm:"primaryKey"`
	PartCode       string         `gorm:"type:text;not null"`
	PartName       *string        `gorm:"type:text"`
	VendorName     *string        `gorm:"type:text"`
	VendorID       *string        `gorm:"type:text"`
	VendorType     *string        `gorm:"type:text"`
	ProductionDate datatypes.Date `gorm:"type:date;not null"`
	ApprovedBy     *uint          `gorm:"index"`
	ApprovedByName *string        `gorm:"type:text"`
	ApprovedAt     *time.Time     `gorm:"type:timestamptz"`
	DataFrom       string         `gorm:"type:text;not null;default:'Create'"`
	Status         string         `gorm:"type:text;not null"`
	Remark         *string        `gorm:"type:text"`
	IsActive       bool           `gorm:"not null;default:true"`
	CreatedAt      time.Time      `gorm:"type:timestamptz;not null"`
	UpdatedAt      time.Time      `gorm:"type:timestamptz;not null"`
}

func (QCCheck) TableName() string { return "qc_checks" }
