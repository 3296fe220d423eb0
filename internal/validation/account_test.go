package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid password", "Str0ng!Passw0rd", false},
		{"Too short", "Sh0rt!pw", true},
		{"No uppercase", "l0wercase!only!!", true},
		{"No lowercase", "UPPERCASE0NLY!!!", true},
		{"No digit", "NoDigitsHere!!!!", true},
		{"No special char", "NoSpecials12345A", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid username", "jane_doe", false},
		{"Valid with hyphen", "jane-doe42", false},
		{"Too short", "ab", true},
		{"Too long", "a123456789012345678901234567890", true},
		{"Illegal characters", "jane doe", true},
		{"Leading underscore", "_jane", true},
		{"Trailing hyphen", "jane-", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid email", "jane@example.com", false},
		{"Valid with plus", "jane+feed@example.co.uk", false},
		{"Missing at", "janeexample.com", true},
		{"Missing domain", "jane@", true},
		{"Missing tld", "jane@example", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
