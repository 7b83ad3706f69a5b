package domain

import (
	"strings"
	"time"
)

// User is a project member deliverables can be assigned to.
type User struct {
	ID        string
	ProjectID string
	Name      string
	Email     string
	Role      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser constructs an active user. Role defaults to "Team Member".
func NewUser(id, projectID, name, email, role string, now time.Time) (User, error) {
	id = strings.TrimSpace(id)
	projectID = strings.TrimSpace(projectID)
	name = strings.TrimSpace(name)
	if id == "" || projectID == "" {
		return User{}, ErrInvalidID
	}
	if name == "" {
		return User{}, ErrInvalidName
	}
	role = strings.TrimSpace(role)
	if role == "" {
		role = "Team Member"
	}

	return User{
		ID:        id,
		ProjectID: projectID,
		Name:      name,
		Email:     strings.TrimSpace(email),
		Role:      role,
		Active:    true,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// UpdateDetails updates name, email, and role.
func (u *User) UpdateDetails(name, email, role string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	u.Name = name
	u.Email = strings.TrimSpace(email)
	if role = strings.TrimSpace(role); role != "" {
		u.Role = role
	}
	u.UpdatedAt = now.UTC()
	return nil
}

// Deactivate removes the user from assignment pickers without deleting rows.
func (u *User) Deactivate(now time.Time) {
	u.Active = false
	u.UpdatedAt = now.UTC()
}

// Activate re-enables a deactivated user.
func (u *User) Activate(now time.Time) {
	u.Active = true
	u.UpdatedAt = now.UTC()
}
