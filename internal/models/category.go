package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a transaction category
type Category struct {
	Base
	UserID      string       `gorm:"type:char(36);not null;index" json:"user_id"`
	Name        string       `gorm:"size:100;not null" json:"name"`
	Type        CategoryType `gorm:"size:10;not null" json:"type"`
	Description string       `json:"description,omitempty"`
	Icon        string       `gorm:"size:50" json:"icon"`
	Color       string       `gorm:"size:7" json:"color"`
	IsDefault   bool         `gorm:"not null;default:false" json:"is_default"`

	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"-"`
	Budgets      []Budget      `gorm:"foreignKey:CategoryID" json:"-"`
}
