package wizard

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	katakanaPattern = regexp.MustCompile(`^[ァ-ヶー\s\x{3000}]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern    = regexp.MustCompile(`^[\d\-]+$`)
)

// Field names, as reported in ValidationError.Field and focus effects.
const (
	FieldName     = "name"
	FieldNameKana = "nameKana"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldGuests   = "guests"
	FieldCourse   = "course"
)

type fieldRule struct {
	field string
	value func(Details) string
	// checks run in order; the first failing tag selects the message
	checks []fieldCheck
}

type fieldCheck struct {
	tag     string
	message string
}

// detailRules fixes the validation order: name, nameKana, email, phone.
var detailRules = []fieldRule{
	{
		field: FieldName,
		value: func(d Details) string { return d.Name },
		checks: []fieldCheck{
			{"required", "お名前を入力してください。"},
		},
	},
	{
		field: FieldNameKana,
		value: func(d Details) string { return d.NameKana },
		checks: []fieldCheck{
			{"required", "お名前（フリガナ）を入力してください。"},
			{"katakana", "フリガナはカタカナで入力してください。"},
		},
	},
	{
		field: FieldEmail,
		value: func(d Details) string { return d.Email },
		checks: []fieldCheck{
			{"required", "メールアドレスを入力してください。"},
			{"basicemail", "正しいメールアドレスを入力してください。"},
		},
	},
	{
		field: FieldPhone,
		value: func(d Details) string { return d.Phone },
		checks: []fieldCheck{
			{"required", "電話番号を入力してください。"},
			{"phonedigits", "正しい電話番号を入力してください。"},
		},
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	register := func(tag string, re *regexp.Regexp) {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}
	register("katakana", katakanaPattern)
	register("basicemail", emailPattern)
	register("phonedigits", phonePattern)
	return v
}

// ValidateDetails checks d and returns the first violation, or nil.
func ValidateDetails(d Details) *ValidationError {
	for _, rule := range detailRules {
		value := rule.value(d)
		for _, check := range rule.checks {
			if err := validate.Var(value, check.tag); err != nil {
				return &ValidationError{Field: rule.field, Message: check.message}
			}
		}
	}
	return nil
}
