package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidVideoID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"typical id", "dQw4w9WgXcQ", true},
		{"underscore and dash", "a-b_c-d_e-f", true},
		{"too short", "dQw4w9WgXc", false},
		{"too long", "dQw4w9WgXcQQ", false},
		{"invalid character", "dQw4w9WgXc!", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidVideoID(tt.id))
		})
	}
}

func TestIsValidChannelID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"typical id", "UCabcdefghijklmnopqrstuv", true},
		{"missing UC prefix", "XXabcdefghijklmnopqrstuv", false},
		{"too short", "UCabcdefghijklmnopqrstu", false},
		{"too long", "UCabcdefghijklmnopqrstuvw", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidChannelID(tt.id))
		})
	}
}

func TestIsValidPlaylistID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"regular playlist", "PL0123456789", true},
		{"uploads playlist", "UUabcdefghijklmnopqrstuv", true},
		{"liked videos", "LL0123456789", true},
		{"favorites", "FL0123456789", true},
		{"mix", "RD0123456789", true},
		{"unknown prefix", "XX0123456789", false},
		{"too short", "PL012345678", false},
		{"invalid character", "PL0123456789!", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidPlaylistID(tt.id))
		})
	}
}
