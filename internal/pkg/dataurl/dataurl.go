// Package dataurl decodes browser data URLs ("data:<type>;base64,<payload>").
package dataurl

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/futig/kbchat-backend/internal/entity"
)

// Decode discards everything up to the first comma and base64-decodes the rest.
func Decode(s string) ([]byte, error) {
	_, payload, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("%w: data url has no payload", entity.ErrInvalidFormat)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrInvalidFormat, err)
	}

	return data, nil
}
