package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/meqhh/simpat-api/internal/models"
)

const unknownApprover = "Unknown"

// resolveApprover maps a display name to an employee id by case-insensitive
// exact match. It returns nil without querying when name is empty, and nil
// when no employee matches; neither case is an error.
func resolveApprover(tx *gorm.DB, name string) (*uint, error) {
	if name == "" {
		return nil, nil
	}

	var employee models.Employee
	err := tx.Select("id").
		Where("LOWER(emp_name) = LOWER(?)", name).
		Take(&employee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve approver: %w", err)
	}
	return &employee.ID, nil
}

// displayApprover picks the name shown for a record: the stored display name,
// then the employee directory name, then "Unknown".
func displayApprover(approvedByName, empName *string) string {
	if approvedByName != nil && *approvedByName != "" {
		return *approvedByName
	}
	if empName != nil && *empName != "" {
		return *empName
	}
	return unknownApprover
}
