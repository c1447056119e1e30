package auth

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/authapi/internal/model"
	"github.com/hitoshi/authapi/internal/result"
	"github.com/hitoshi/authapi/internal/security"
)

// MaxEmailLength はusers.emailカラムの長さ上限。
const MaxEmailLength = 255

// MaxPasswordBytes はbcryptが扱えるパスワードのバイト長上限。
const MaxPasswordBytes = 72

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Email    string `json:"email" validate:"email,max=255"`
	Password string `json:"password" validate:"min=8,maxbytes=72"`
	Name     string `json:"name" validate:"min=1,max=100,nomarkup"`
}

// LoginInput はログインの入力。
type LoginInput struct {
	Email    string `json:"email" validate:"email,max=255"`
	Password string `json:"password" validate:"min=1"`
}

// UpdateInput はユーザー更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	Email *string `json:"email" validate:"omitnil,email,max=255"`
	Name  *string `json:"name" validate:"omitnil,min=1,max=100,nomarkup"`
}

// InputValidator は構造体タグに基づいて入力を検証し、
// 失敗をフィールド単位のVALIDATION_ERRORに変換する。
type InputValidator struct {
	validate *validator.Validate
}

// NewInputValidator はInputValidatorを生成する。
// nomarkupタグはsanitizerでマークアップを含む文字列を拒否する。
// maxbytesタグは文字数ではなくUTF-8のバイト長で上限を判定する。
func NewInputValidator(sanitizer *security.TextSanitizer) *InputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// フィールド名にはJSONのキー名を使う
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// RegisterValidationが失敗するのはタグ名が空の場合のみ
	_ = v.RegisterValidation("nomarkup", func(fl validator.FieldLevel) bool {
		return !sanitizer.ContainsMarkup(fl.Field().String())
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})

	return &InputValidator{validate: v}
}

// Check はinを検証し、失敗した場合はVALIDATION_ERRORを返す。成功時はnil。
func (v *InputValidator) Check(in any) *model.AppError {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return model.NewValidationError("", nil)
	}

	fieldErrors := make([]model.FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fieldErrors = append(fieldErrors, model.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return model.NewFieldValidationError(fieldErrors)
}

// Validate はinを検証し、成功時はinをそのままOkで返す。
func Validate[T any](v *InputValidator, in T) result.Result[T, *model.AppError] {
	if appErr := v.Check(in); appErr != nil {
		return result.Err[T](appErr)
	}
	return result.Ok[T, *model.AppError](in)
}

func fieldMessage(fe validator.FieldError) string {
	label := displayName(fe.Field())
	switch fe.Tag() {
	case "email":
		return "Invalid email format"
	case "required":
		return label + " is required"
	case "min":
		if fe.Param() == "1" {
			return label + " is required"
		}
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max", "maxbytes":
		return label + " too long"
	case "nomarkup":
		return label + " must not contain markup"
	default:
		return "Invalid " + fe.Field()
	}
}

func displayName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
