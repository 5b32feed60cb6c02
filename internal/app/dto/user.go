package dto

import (
	"time"

	domainuser "rentcar/internal/domain/user"
)

type UserDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserCollection struct {
	Items []UserDTO `json:"items"`
	Page  Page      `json:"page"`
}

func MapUser(u *domainuser.User) UserDTO {
	return UserDTO{
		ID:        string(u.ID),
		Email:     u.Email,
		Phone:     u.Phone,
		Name:      u.Name,
		Role:      string(u.Role),
		Verified:  u.Verified,
		Blocked:   u.Blocked,
		CreatedAt: u.CreatedAt,
	}
}

func MapUsers(items []*domainuser.User) []UserDTO {
	out := make([]UserDTO, 0, len(items))
	for _, u := range items {
		out = append(out, MapUser(u))
	}
	return out
}
