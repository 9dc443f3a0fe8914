package validator

import "errors"

var (
	ErrEmptyURL           = errors.New("URL cannot be empty")
	ErrInvalidURL         = errors.New("invalid URL format")
	ErrInvalidScheme      = errors.New("URL must use http or https scheme")
	ErrInvalidHost        = errors.New("URL must have a valid host")
	ErrURLTooLong         = errors.New("URL is too long")
	ErrInvalidAliasLength = errors.New("alias must be 3-32 characters")
	ErrInvalidAliasFormat = errors.New("alias may only contain letters, digits, hyphens and underscores")
	ErrReservedAlias      = errors.New("alias is reserved")
)
