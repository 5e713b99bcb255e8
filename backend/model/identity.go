package model

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const MaxIdentityLength = 20

var ErrInvalidIdentity = errors.New("identity must be 1-20 characters")

var validate = validator.New()

// NormalizeIdentity trims s and checks it is a usable display identity.
func NormalizeIdentity(s string) (string, error) {
	id := strings.TrimSpace(s)
	if err := validate.Var(id, "required,max=20"); err != nil {
		return "", errors.Join(ErrInvalidIdentity, err)
	}
	return id, nil
}

// Validate checks struct tags of v with the shared validator.
func Validate(v any) error {
	return validate.Struct(v)
}
