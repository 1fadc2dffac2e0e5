package domain

import (
	"time"
)

type Role string

const (
	RoleDutyManager Role = "值班经理"
	RoleSuperAdmin  Role = "超级管理员"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Department   string    `json:"department"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}
