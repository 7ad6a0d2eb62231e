package domain

import (
	"testing"

	"listing-chat/errors"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Role
		wantErr bool
	}{
		{"Canonical inquirer", "inquirer", RoleInquirer, false},
		{"Canonical owner", "owner", RoleOwner, false},
		{"Legacy student", "student", RoleInquirer, false},
		{"Legacy landlord with noise", "  Landlord ", RoleOwner, false},
		{"Unknown role", "admin", "", true},
		{"Empty role", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			role, err := ParseRole(tt.input)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrUnknownRole)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, role)
		})
	}
}

func TestConversation_HasParticipant(t *testing.T) {
	req := require.New(t)
	conversation := Conversation{ID: "C1", ListingID: "L1", InquirerID: "S1", OwnerID: "O1"}

	req.True(conversation.HasParticipant("S1"))
	req.True(conversation.HasParticipant("O1"))
	req.False(conversation.HasParticipant("X1"))
	req.False(conversation.HasParticipant(""))
}
