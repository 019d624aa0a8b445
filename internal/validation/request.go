// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minTitleLen   = 5
	maxTitleLen   = 200
	minPurposeLen = 10
	maxNotesLen   = 4000
	maxAttachment = 512
	maxFiscalYear = 16
)

var (
	sopCodeRegex    = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,38}[A-Z0-9]$`)
	fiscalYearRegex = regexp.MustCompile(`^\d{4}-\d{2}$`)
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	digitRegex      = regexp.MustCompile(`[0-9]`)
	specialRegex    = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?]`)
)

// RequestFields are the descriptive fields of a purchase request.
type RequestFields struct {
	Title           string
	Purpose         string
	College         string
	Department      string
	CostEstimate    float64
	ExpenseCategory string
	SOPReference    string
	Attachments     []string
}

// ValidateRequest checks the descriptive fields of a new or edited request.
func ValidateRequest(f RequestFields) error {
	title := strings.TrimSpace(f.Title)
	if n := utf8.RuneCountInString(title); n < minTitleLen || n > maxTitleLen {
		return fmt.Errorf("title must be between %d and %d characters", minTitleLen, maxTitleLen)
	}
	if utf8.RuneCountInString(strings.TrimSpace(f.Purpose)) < minPurposeLen {
		return fmt.Errorf("purpose must be at least %d characters", minPurposeLen)
	}
	if strings.TrimSpace(f.College) == "" {
		return fmt.Errorf("college is required")
	}
	if strings.TrimSpace(f.Department) == "" {
		return fmt.Errorf("department is required")
	}
	if strings.TrimSpace(f.ExpenseCategory) == "" {
		return fmt.Errorf("expense category is required")
	}
	if math.IsNaN(f.CostEstimate) || math.IsInf(f.CostEstimate, 0) || f.CostEstimate < 0 {
		return fmt.Errorf("cost estimate must be a non-negative number")
	}
	if f.SOPReference != "" {
		if err := ValidateSOPCode(f.SOPReference); err != nil {
			return err
		}
	}
	return ValidateAttachments(f.Attachments)
}

// ValidateSOPCode checks the format of an SOP code such as SOP-001.
func ValidateSOPCode(code string) error {
	if !sopCodeRegex.MatchString(strings.ToUpper(strings.TrimSpace(code))) {
		return fmt.Errorf("SOP reference %q is not a valid SOP code", code)
	}
	return nil
}

// ValidateAttachments checks attachment references. They are opaque strings.
func ValidateAttachments(refs []string) error {
	for _, ref := range refs {
		if strings.TrimSpace(ref) == "" {
			return fmt.Errorf("attachment reference must not be empty")
		}
		if len(ref) > maxAttachment {
			return fmt.Errorf("attachment reference must not exceed %d characters", maxAttachment)
		}
	}
	return nil
}

// ValidateNotes bounds free-text notes and forwarded messages.
func ValidateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return fmt.Errorf("notes must not exceed %d characters", maxNotesLen)
	}
	return nil
}

// ValidateFiscalYear checks the YYYY-YY fiscal year form.
func ValidateFiscalYear(fy string) error {
	if len(fy) > maxFiscalYear || !fiscalYearRegex.MatchString(fy) {
		return fmt.Errorf("fiscal year %q must look like 2024-25", fy)
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 12 {
		return fmt.Errorf("password must be at least 12 characters long")
	}
	if len(password) > 128 {
		return fmt.Errorf("password must not exceed 128 characters")
	}

	var hasUpper, hasLower bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !digitRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one digit")
	}
	if !specialRegex.MatchString(password) {
		return fmt.Errorf("password must contain at least one special character (!@#$%%^&*)")
	}
	return nil
}
