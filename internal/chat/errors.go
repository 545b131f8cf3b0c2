package chat

import "errors"

var (
	ErrUsernameEmpty = errors.New("username cannot be empty")
	ErrUsernameTaken = errors.New("username already taken")
)
