package validator

import (
	"net/url"
	"strings"
)

const (
	MinAliasLength = 3
	MaxAliasLength = 32
	MaxURLLength   = 2048
)

// reservedAliases collide with routes served next to GET /{shortId}.
var reservedAliases = map[string]bool{
	"api":     true,
	"health":  true,
	"links":   true,
	"metrics": true,
	"static":  true,
}

// ValidateURL checks that urlStr is an absolute http(s) URL with a host.
func ValidateURL(urlStr string) error {
	urlStr = strings.TrimSpace(urlStr)

	if urlStr == "" {
		return ErrEmptyURL
	}
	if len(urlStr) > MaxURLLength {
		return ErrURLTooLong
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return ErrInvalidURL
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return ErrInvalidScheme
	}

	if parsedURL.Hostname() == "" {
		return ErrInvalidHost
	}

	return nil
}

// ValidateAlias checks a user-chosen short id against the charset, length
// and reserved-word policy.
func ValidateAlias(alias string) error {
	if len(alias) < MinAliasLength || len(alias) > MaxAliasLength {
		return ErrInvalidAliasLength
	}

	for _, char := range alias {
		if !isAlphanumeric(char) && char != '-' && char != '_' {
			return ErrInvalidAliasFormat
		}
	}

	if reservedAliases[strings.ToLower(alias)] {
		return ErrReservedAlias
	}

	return nil
}

func isAlphanumeric(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9')
}
