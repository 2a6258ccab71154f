package models

type Employee struct {
	ID      uint   `gorm:"primaryKey"`
	EmpName string `gorm:"column:emp_name;type:text;not null"`
}

func (Employee) TableName() string { return "employees" }
