// Package pagination normalizes page sizes and opaque offset page tokens.
package pagination

import (
	"encoding/base64"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
)

const tokenPrefix = "o:"

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// Default is the page size policy shared by list endpoints.
var Default = PageSizeConfig{Default: 20, Max: 100}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int, cfg PageSizeConfig) int {
	pageSize := value
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// EncodeOffset renders a row offset as an opaque page token.
func EncodeOffset(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(tokenPrefix + strconv.Itoa(offset)))
}

// DecodeOffset parses a page token produced by EncodeOffset. An empty token is offset zero.
func DecodeOffset(token string) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || !strings.HasPrefix(string(raw), tokenPrefix) {
		return 0, apperrors.New(apperrors.CodeInvalidArgument, "page_token is invalid")
	}
	offset, err := strconv.Atoi(strings.TrimPrefix(string(raw), tokenPrefix))
	if err != nil || offset < 0 {
		return 0, apperrors.New(apperrors.CodeInvalidArgument, "page_token is invalid")
	}
	return offset, nil
}

// Request is a normalized page request.
type Request struct {
	Limit  int
	Offset int
}

// ParseRequest reads page_size and page_token query values.
func ParseRequest(pageSize string, pageToken string, cfg PageSizeConfig) (Request, error) {
	size := 0
	if value := strings.TrimSpace(pageSize); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return Request{}, apperrors.New(apperrors.CodeInvalidArgument, "page_size must be an integer")
		}
		size = parsed
	}
	offset, err := DecodeOffset(pageToken)
	if err != nil {
		return Request{}, err
	}
	return Request{Limit: ClampPageSize(size, cfg), Offset: offset}, nil
}

// NextToken returns the token for the page after one that returned count rows.
// It returns "" when hasMore is false.
func (r Request) NextToken(hasMore bool) string {
	if !hasMore {
		return ""
	}
	return EncodeOffset(r.Offset + r.Limit)
}
