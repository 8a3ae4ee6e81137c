package auth

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Field names used as FieldErrors keys and form input names.
const (
	FieldIdentifier = "identifier"
	FieldUsername   = "username"
	FieldEmail      = "email"
	FieldPassword   = "password"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

type loginForm struct {
	Identifier string `validate:"required"`
	Password   string `validate:"required"`
}

type registerForm struct {
	Username string `validate:"required,max=20"`
	Email    string `validate:"required,emailish,max=50"`
	Password string `validate:"required,min=6,max=40"`
}

var messages = map[string]map[string]string{
	"Identifier": {
		"required": "Username or Email is required",
	},
	"Username": {
		"required": "Username is required",
		"max":      "Username must be at most 20 characters",
	},
	"Email": {
		"required": "Email is required",
		"emailish": "Email is invalid",
		"max":      "Email must be at most 50 characters",
	},
	"Password": {
		"required": "Password is required",
		"min":      "Password must be at least 6 characters",
		"max":      "Password must be at most 40 characters",
	},
}

var fieldKeys = map[string]string{
	"Identifier": FieldIdentifier,
	"Username":   FieldUsername,
	"Email":      FieldEmail,
	"Password":   FieldPassword,
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("emailish", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

var validate = newValidator()

// ValidateLogin checks the sign-in form.
func ValidateLogin(identifier, password string) FieldErrors {
	return check(loginForm{Identifier: identifier, Password: password})
}

// ValidateRegister checks the sign-up form.
func ValidateRegister(username, email, password string) FieldErrors {
	return check(registerForm{Username: username, Email: email, Password: password})
}

func check(form any) FieldErrors {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"": err.Error()}
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		key := fieldKeys[fe.Field()]
		if _, seen := out[key]; seen {
			continue
		}
		msg := messages[fe.Field()][fe.Tag()]
		if msg == "" {
			msg = fe.Error()
		}
		out[key] = msg
	}
	return out
}
