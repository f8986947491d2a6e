package cmd

import (
	"strings"
	"testing"

	"github.com/Togather-Foundation/rsvp/internal/auth"
	"github.com/stretchr/testify/require"
)

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("STORAGE_BACKEND", "")

	output, err := execute(t, "token", "--user-id", "7", "--username", "alice", "--role", "Organizer")
	require.NoError(t, err)

	tokens := auth.NewTokenService("cli-test-secret", auth.DefaultTokenTTL, "")
	claims, err := tokens.Verify(strings.TrimSpace(output))
	require.NoError(t, err)
	require.Equal(t, auth.Identity{UserID: 7, Username: "alice", Role: auth.RoleOrganizer}, claims.Identity())
}

func TestTokenCommandRejectsBadInput(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown role", args: []string{"token", "--user-id", "1", "--role", "Admin"}, want: "unknown role"},
		{name: "non-positive id", args: []string{"token", "--user-id", "0", "--role", "Attendee"}, want: "--user-id must be positive"},
		{name: "missing role", args: []string{"token", "--user-id", "1"}, want: "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMigrateDownRequiresSteps(t *testing.T) {
	_, err := execute(t, "migrate", "down", "--steps", "0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--steps must be at least 1")
}
