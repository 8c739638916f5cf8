package users

import "time"

// User is a recruiter's profile, keyed by the token subject.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Company   string    `json:"company"`
	JobTitle  string    `json:"jobTitle"`
	Onboarded bool      `json:"onboarded"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
