package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the credential record. It is created at registration and
// immutable afterwards, the auth layer only ever reads it back by email.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ExpenseCategory is the expense's spending category
type ExpenseCategory = string

const (
	CategoryGroceries   ExpenseCategory = "Groceries"
	CategoryLeisure     ExpenseCategory = "Leisure"
	CategoryElectronics ExpenseCategory = "Electronics"
	CategoryUtilities   ExpenseCategory = "Utilities"
	CategoryClothing    ExpenseCategory = "Clothing"
	CategoryHealth      ExpenseCategory = "Health"
	CategoryOthers      ExpenseCategory = "Others"
)

// Categories lists every valid expense category.
var Categories = []ExpenseCategory{
	CategoryGroceries,
	CategoryLeisure,
	CategoryElectronics,
	CategoryUtilities,
	CategoryClothing,
	CategoryHealth,
	CategoryOthers,
}

// ValidCategory reports whether s names a known category.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}

// Expense is a single expense record owned by a user.
type Expense struct {
	bun.BaseModel `bun:"table:expenses,alias:exp"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Category      string     `bun:"category,notnull" json:"category"`
	Cost          float64    `bun:"cost,notnull" json:"cost"`
	Description   string     `bun:"description" json:"description,omitempty"`
	PurchasedAt   time.Time  `bun:"purchased_at,notnull" json:"purchased_at"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
