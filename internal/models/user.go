package models

import "github.com/google/uuid"

// User — профиль пользователя, каким его отдаёт API.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name,omitempty"`
}
