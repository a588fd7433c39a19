package models

// User roles.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	BaseModel
	Name     string `json:"name"`
	Email    string `gorm:"uniqueIndex" json:"email"`
	Password string `json:"-"`
	Phone    string `json:"phone"`
	Role     string `gorm:"default:customer" json:"role"`
}
