package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account kinds.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleFarmer   Role = "farmer"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role string. Empty input means consumer.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleConsumer:
		return RoleConsumer, nil
	case RoleFarmer:
		return RoleFarmer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// SelfAssignable reports whether a user may pick this role at sign-up.
func (r Role) SelfAssignable() bool {
	switch r {
	case RoleConsumer, RoleFarmer:
		return true
	case RoleAdmin:
		return false
	default:
		return false
	}
}

type User struct {
	ID        string     `json:"_id" bson:"_id"`
	Name      string     `json:"name" bson:"name"`
	Email     string     `json:"email" bson:"email"`
	Password  string     `json:"-" bson:"password"`
	Role      Role       `json:"role" bson:"role"`
	Avatar    string     `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Phone     string     `json:"phone,omitempty" bson:"phone,omitempty"`
	Cart      []CartItem `json:"cartItems" bson:"cart"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// UserSummary is the populated form of a user reference inside an order.
type UserSummary struct {
	ID     string `json:"_id" bson:"_id"`
	Name   string `json:"name" bson:"name"`
	Email  string `json:"email,omitempty" bson:"email,omitempty"`
	Phone  string `json:"phone,omitempty" bson:"phone,omitempty"`
	Avatar string `json:"avatar,omitempty" bson:"avatar,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Avatar: u.Avatar}
}
