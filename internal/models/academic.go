package models

import "time"

// Department is the top level of the academic hierarchy.
type Department struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubDepartment is an optional grouping inside a department.
type SubDepartment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DepartmentID uint      `gorm:"not null;index" json:"department_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Active       bool      `gorm:"not null" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Batch is an optional cohort grouping inside a department.
type Batch struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DepartmentID uint      `gorm:"not null;index" json:"department_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Active       bool      `gorm:"not null" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Student is the read model the resolver and marks engine operate on.
// A student belongs to exactly one department, any number of
// sub-departments and batches, and carries a department-independent
// standard classification (e.g. "B.A. 1st Year").
type Student struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Email           string          `gorm:"size:255;uniqueIndex;not null" json:"email"`
	DepartmentID    uint            `gorm:"not null;index" json:"department_id"`
	CurrentStandard string          `gorm:"size:128;index" json:"current_standard"`
	Active          bool            `gorm:"not null" json:"active"`
	SubDepartments  []SubDepartment `gorm:"many2many:student_sub_departments" json:"sub_departments,omitempty"`
	Batches         []Batch         `gorm:"many2many:student_batches" json:"batches,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
