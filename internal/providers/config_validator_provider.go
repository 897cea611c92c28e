package providers

import (
	"errors"

	"github.com/gookit/validate"

	"sds/internal/structures"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (v *CnfValidator) Validate() error {
	val := validate.Struct(v.conf)
	if !val.Validate() {
		return errors.New(val.Errors.One())
	}
	return nil
}
