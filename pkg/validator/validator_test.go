package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "https", input: "https://example.com/page", wantErr: nil},
		{name: "http with port and query", input: "http://example.com:8080/a?b=c", wantErr: nil},
		{name: "surrounding whitespace", input: "  https://example.com  ", wantErr: nil},
		{name: "empty", input: "   ", wantErr: ErrEmptyURL},
		{name: "no scheme", input: "example.com/page", wantErr: ErrInvalidScheme},
		{name: "ftp scheme", input: "ftp://example.com/file", wantErr: ErrInvalidScheme},
		{name: "javascript scheme", input: "javascript:alert(1)", wantErr: ErrInvalidScheme},
		{name: "missing host", input: "https:///path", wantErr: ErrInvalidHost},
		{name: "unparseable", input: "http://[::1", wantErr: ErrInvalidURL},
		{name: "too long", input: "https://example.com/" + strings.Repeat("a", MaxURLLength), wantErr: ErrURLTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateAlias(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "simple", input: "promo", wantErr: nil},
		{name: "with separators", input: "spring_sale-2025", wantErr: nil},
		{name: "minimum length", input: "abc", wantErr: nil},
		{name: "maximum length", input: strings.Repeat("a", MaxAliasLength), wantErr: nil},
		{name: "too short", input: "ab", wantErr: ErrInvalidAliasLength},
		{name: "too long", input: strings.Repeat("a", MaxAliasLength+1), wantErr: ErrInvalidAliasLength},
		{name: "slash", input: "a/b/c", wantErr: ErrInvalidAliasFormat},
		{name: "space", input: "my link", wantErr: ErrInvalidAliasFormat},
		{name: "non ascii", input: "café", wantErr: ErrInvalidAliasFormat},
		{name: "reserved", input: "links", wantErr: ErrReservedAlias},
		{name: "reserved any case", input: "Health", wantErr: ErrReservedAlias},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAlias(tt.input)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
