package utils

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "Quilt/pkg/errors"
)

// FieldErrors 字段名（json 名）到提示信息，可直接作为 error 返回
type FieldErrors = apperrors.FieldErrors

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// 每个 "字段.规则" 对应的提示，未列出的按规则兜底
var fieldMessages = map[string]string{
	"first_name.required":       "First name is required",
	"last_name.required":        "Last name is required",
	"relationship.required":     "Relationship is required",
	"relationship.oneof":        "Please choose a relationship",
	"email.required":            "Please enter a valid email",
	"email.email":               "Please enter a valid email",
	"phone.required":            "Please enter a valid phone number",
	"phone.phone":               "Please enter a valid phone number",
	"password.required":         "Password must be at least 8 characters",
	"password.min":              "Password must be at least 8 characters",
	"password.max":              "Password must be fewer than 64 characters",
	"confirm_password.eqfield":  "Passwords don't match",
	"confirm_password.required": "Passwords don't match",
	"code.required":             "Please enter the code",
	"code.len":                  "Please enter a valid code",
	"code.numeric":              "Please enter a valid code",
	"mode.oneof":                "Interface mode must be default or easy",
}

var ruleMessages = map[string]string{
	"required": "This field is required",
	"email":    "Please enter a valid email",
	"oneof":    "Please choose one of the options",
	"min":      "Value is too short",
	"max":      "Value is too long",
	"len":      "Value has the wrong length",
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return ValidatePhone(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct 校验带 validate 标签的结构体，返回 nil 表示通过
// 同一字段只保留第一条错误
func ValidateStruct(v interface{}) FieldErrors {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"_": err.Error()}
	}

	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if _, exists := fields[name]; exists {
			continue
		}
		fields[name] = messageFor(name, fe.Tag())
	}
	return fields
}

func messageFor(field, tag string) string {
	if msg, ok := fieldMessages[field+"."+tag]; ok {
		return msg
	}
	if msg, ok := ruleMessages[tag]; ok {
		return msg
	}
	return "Invalid value"
}

// NormalizePhone 只保留数字
func NormalizePhone(phone string) string {
	var sb strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ValidatePhone 至少 10 位数字，允许空格、括号、横线和前导 +
func ValidatePhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return false
	}
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9', r == ' ', r == '-', r == '(', r == ')', r == '.':
		case r == '+' && i == 0:
		default:
			return false
		}
	}
	digits := len(NormalizePhone(phone))
	return digits >= 10 && digits <= 15
}
