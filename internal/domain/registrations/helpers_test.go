package registrations_test

import (
	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/Togather-Foundation/rsvp/internal/domain/users"
)

func userParams(id auth.Identity) users.CreateParams {
	return users.CreateParams{Username: id.Username, PasswordHash: "x", Role: id.Role}
}
