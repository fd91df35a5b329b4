package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	errors "github.com/frahmantamala/gatepass/internal"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			if fl.Field().Kind() != reflect.String {
				return true
			}
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// Struct runs the struct tags of v and converts every failure into a field error.
func Struct(v interface{}) *errors.AppError {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewValidationError(err.Error(), errors.ErrCodeValidationFailed)
	}

	out := make([]errors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, errors.ValidationError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Code:    string(errors.ErrCodeValidationFailed),
		})
	}
	return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
		WithDetails(errors.ValidationErrors{Errors: out})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must not exceed %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

// ValidationBuilder collects ad hoc checks that struct tags cannot express.
type ValidationBuilder struct {
	fields []FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return &v.fields[len(v.fields)-1]
}

func (fv *FieldValidator) Required() *FieldValidator {
	name := fv.FieldName
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return errors.NewValidationFieldError(name, fmt.Sprintf("%s is required", name), errors.ErrCodeValidationFailed)
			}
		case int64:
			if v == 0 {
				return errors.NewValidationFieldError(name, fmt.Sprintf("%s is required", name), errors.ErrCodeValidationFailed)
			}
		case *string:
			if v == nil || strings.TrimSpace(*v) == "" {
				return errors.NewValidationFieldError(name, fmt.Sprintf("%s is required", name), errors.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinInt(min int64, code errors.ErrorCode) *FieldValidator {
	name := fv.FieldName
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(int64); ok && v < min {
			return errors.NewValidationFieldError(name, fmt.Sprintf("%s must be at least %d", name, min), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MaxInt(max int64, code errors.ErrorCode) *FieldValidator {
	name := fv.FieldName
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(int64); ok && v > max {
			return errors.NewValidationFieldError(name, fmt.Sprintf("%s must not exceed %d", name, max), code)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) MinLength(min int) *FieldValidator {
	name := fv.FieldName
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok && len(v) < min {
			message := fmt.Sprintf("%s must be at least %d characters", name, min)
			return errors.NewValidationFieldError(name, message, errors.ErrCodeValidationFailed)
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			appErr := validator(field.Value)
			if appErr == nil {
				continue
			}
			if details, ok := appErr.Details.(errors.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
				continue
			}
			validationErrors = append(validationErrors, errors.ValidationError{
				Field:   field.FieldName,
				Message: appErr.Message,
				Code:    string(appErr.Code),
			})
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

// Paging normalizes limit/offset query values. Zero limit means the default page size.
func Paging(limit, offset int) (int, int, *errors.AppError) {
	v := NewValidator()
	v.Field("limit", int64(limit)).MinInt(0, errors.ErrCodeInvalidPaging).MaxInt(MaxPageLimit, errors.ErrCodeInvalidPaging)
	v.Field("offset", int64(offset)).MinInt(0, errors.ErrCodeInvalidPaging)
	if err := v.Validate(); err != nil {
		return 0, 0, err
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	return limit, offset, nil
}
