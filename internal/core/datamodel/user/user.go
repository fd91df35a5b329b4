package user

import "time"

type User struct {
	ID           int64     `gorm:"primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Username     string    `gorm:"column:username;uniqueIndex;not null"`
	Email        *string   `gorm:"column:email;uniqueIndex"`
	Phone        string    `gorm:"column:phone"`
	Role         string    `gorm:"column:role;not null;index"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
