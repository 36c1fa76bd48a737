package validator

import (
	"github.com/go-playground/validator/v10"
)

// Validator validates structs using `validate` tags.
type Validator interface {
	Validate(obj interface{}) error
	Var(value interface{}, tag string) error
}

type playgroundValidator struct {
	v *validator.Validate
}

func New() Validator {
	return &playgroundValidator{v: validator.New()}
}

func (p *playgroundValidator) Validate(obj interface{}) error {
	return p.v.Struct(obj)
}

func (p *playgroundValidator) Var(value interface{}, tag string) error {
	return p.v.Var(value, tag)
}
