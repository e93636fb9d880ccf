package domain

import (
	"github.com/phrazzld/querykit/internal/schema"
)

// User is a person who owns an email address and a unique username.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email"    validate:"required,email,max=254"`
	Age      int64  `json:"age"      validate:"gte=0,lte=150"`
}

// NewUser creates a User that has not been stored yet.
// Returns an error if validation fails.
func NewUser(username, email string, age int64) (*User, error) {
	u := &User{Username: username, Email: email, Age: age}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	return validateStruct("User", u)
}

// Changes returns the change set that creates the user.
func (u *User) Changes() (schema.ChangeSet, error) {
	if err := u.Validate(); err != nil {
		return schema.ChangeSet{}, err
	}
	return schema.NewChangeSet(schema.Users, map[string]any{
		"username": u.Username,
		"email":    u.Email,
		"age":      u.Age,
	})
}

// UserFromRecord decodes a User record.
func UserFromRecord(r schema.Record) (User, error) {
	var (
		u   User
		err error
	)
	if u.ID, err = requireInt(r, "id"); err != nil {
		return User{}, err
	}
	if u.Username, err = requireString(r, "username"); err != nil {
		return User{}, err
	}
	if u.Email, err = requireString(r, "email"); err != nil {
		return User{}, err
	}
	if u.Age, err = requireInt(r, "age"); err != nil {
		return User{}, err
	}
	return u, nil
}
