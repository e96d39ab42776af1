package model

import (
	"fmt"
	"strings"

	"oceancare/internal/domain"
)

type Identity struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
}

func (i Identity) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: empty id", domain.ErrInvalidIdentity)
	}
	// The gateway refuses patient rooms whose id is padded.
	if strings.TrimSpace(i.ID) != i.ID {
		return fmt.Errorf("%w: id %q has surrounding whitespace", domain.ErrInvalidIdentity, i.ID)
	}
	if _, ok := domain.ParseRole(string(i.Role)); !ok {
		return fmt.Errorf("%w: role %q", domain.ErrInvalidIdentity, i.Role)
	}
	return nil
}
