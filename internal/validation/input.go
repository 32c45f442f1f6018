package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinNameLength    = 2
	MaxNameLength    = 100
	MaxNotesLength   = 5000
	MaxPurposeLength = 2000
	MaxMessageLength = 5000
	MaxShortText     = 200
)

var (
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	phoneRegex       = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	otpCodeRegex     = regexp.MustCompile(`^[0-9]{6}$`)
	slugRegex        = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugStripRegex   = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRegex   = regexp.MustCompile(`[\s-]+`)
	clockTimeRegex   = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s must be at most %d characters", fieldName, max)
	}
	return nil
}

// NormalizeEmail приводит email к виду, в котором он хранится.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("invalid email format")
	}

	localPart, domainPart := parts[0], parts[1]
	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("invalid email format")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("invalid email format")
	}
	if !emailLocalRegex.MatchString(localPart) || !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateName проверяет имя клиента.
func ValidateName(name string) error {
	if err := ValidateNonEmpty("name", name); err != nil {
		return err
	}
	return ValidateLength("name", strings.TrimSpace(name), MinNameLength, MaxNameLength)
}

// ValidatePhone принимает 10-15 цифр с необязательным "+"; пробелы и дефисы игнорируются.
func ValidatePhone(phone string) error {
	cleaned := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	if cleaned == "" {
		return fmt.Errorf("phone is required")
	}
	if !phoneRegex.MatchString(cleaned) {
		return fmt.Errorf("invalid phone number")
	}
	return nil
}

// IsOTPCode проверяет формат кода: ровно шесть цифр.
func IsOTPCode(code string) bool {
	return otpCodeRegex.MatchString(code)
}

// IsSlug проверяет формат slug услуги.
func IsSlug(slug string) bool {
	return slugRegex.MatchString(slug)
}

// ValidateOptionalText ограничивает длину необязательного текстового поля.
func ValidateOptionalText(fieldName string, value *string, max int) error {
	if value == nil {
		return nil
	}
	return ValidateLength(fieldName, *value, 0, max)
}

// Slugify строит slug из названия: латиница и цифры, пробелы превращаются в дефисы.
func Slugify(value string) string {
	slug := slugStripRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "")
	slug = slugSpaceRegex.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// IsClockTime проверяет время в формате HH:MM или HH:MM:SS.
func IsClockTime(value string) bool {
	return clockTimeRegex.MatchString(value)
}
