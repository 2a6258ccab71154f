package service

import (
	"context"
	"time"
)

type CreateQCCheckInput struct {
	PartCode       string `validate:"required"`
	PartName       string
	VendorName     string
	VendorID       string
	VendorType     string
	ProductionDate string `validate:"required"`
	// ApprovedBy is the approver's display name, resolved to an employee id best-effort.
	ApprovedBy string
	DataFrom   string
}

// Optional distinguishes an omitted value from a supplied one, including a
// supplied empty string.
type Optional[T any] struct {
	Set   bool
	Value T
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{Set: true, Value: value}
}

type QCCheckPatch struct {
	PartCode       Optional[string]
	PartName       Optional[string]
	VendorName     Optional[string]
	VendorID       Optional[string]
	VendorType     Optional[string]
	ProductionDate Optional[string]
	Status         Optional[string]
	Remark         Optional[string]
}

type ListQCChecksFilter struct {
	Status   string
	DateFrom string
	DateTo   string
	PartCode string
	DataFrom string
}

// QCCheckDTO is a record as stored; ApprovedBy is the raw employee id.
type QCCheckDTO struct {
	ID             uint       `json:"id"`
	PartCode       string     `json:"part_code"`
	PartName       *string    `json:"part_name"`
	VendorName     *string    `json:"vendor_name"`
	VendorID       *string    `json:"vendor_id"`
	VendorType     *string    `json:"vendor_type"`
	ProductionDate string     `json:"production_date"`
	ApprovedBy     *uint      `json:"approved_by"`
	ApprovedByName *string    `json:"approved_by_name"`
	ApprovedAt     *time.Time `json:"approved_at"`
	DataFrom       string     `json:"data_from"`
	Status         string     `json:"status"`
	Remark         *string    `json:"remark"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// QCCheckView is a record prepared for display: approved_by carries the
// effective approver name and the stored id moves to approved_by_id.
type QCCheckView struct {
	QCCheckDTO
	ApprovedBy        string  `json:"approved_by"`
	ApprovedByID      *uint   `json:"approved_by_id"`
	ApprovedByEmpName *string `json:"approved_by_emp_name"`
}

type Manager interface {
	CreateQCCheck(ctx context.Context, input CreateQCCheckInput) (QCCheckDTO, error)
	ListQCChecks(ctx context.Context, filter ListQCChecksFilter) ([]QCCheckView, error)
	GetQCCheck(ctx context.Context, id uint) (QCCheckView, error)
	UpdateQCCheck(ctx context.Context, id uint, patch QCCheckPatch) (QCCheckDTO, error)
	DeleteQCCheck(ctx context.Context, id uint) (uint, error)
}
