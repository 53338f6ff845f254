package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type Teacher struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	ProfilePic   *string   `json:"profile_pic"`
	CreatedAt    time.Time `json:"created_at"`
}

type Student struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	RollNo       string    `json:"roll_no"`
	PasswordHash string    `json:"-"`
	ProfilePic   *string   `json:"profile_pic"`
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Name       string  `json:"name" validate:"required"`
	RollNo     string  `json:"roll_no"`
	Password   string  `json:"password" validate:"required,min=4"`
	ProfilePic *string `json:"profile_pic"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	RollNo   string `json:"roll_no"`
	Password string `json:"password" validate:"required"`
}

type AuthTokens struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in"`
	Role        string    `json:"role"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
}
