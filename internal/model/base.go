package model

import (
	"time"
)

// BaseModel ID 由 snowflake 生成，不使用数据库自增
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
}
