package models

import "time"

type User struct {
	ID        int64     `json:"id" db:"id" readOnly:"true"`
	Username  string    `validate:"required,max=150" json:"username" db:"username"`
	Email     string    `validate:"omitempty,email" json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" readOnly:"true"`
}

func (User) TableName() string {
	return "users"
}

func (u User) GetID() int64 {
	return u.ID
}

func (u User) EmptySlice() interface{} {
	return &[]User{}
}
