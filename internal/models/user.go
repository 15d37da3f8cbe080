package models

import "time"

// User is an account that owns articles and comments. Username is the
// identity key carried by access tokens.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Username     string    `bson:"username" json:"username"`
	PasswordHash string    `bson:"passwordHash,omitempty" json:"-"`
	Sub          string    `bson:"sub,omitempty" json:"sub,omitempty"` // OIDC subject
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
