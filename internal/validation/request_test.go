package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validFields() RequestFields {
	return RequestFields{
		Title:           "Lab equipment",
		Purpose:         "Replace the broken oscilloscopes",
		College:         "Engineering",
		Department:      "Electrical",
		CostEstimate:    1500,
		ExpenseCategory: "Equipment",
		SOPReference:    "SOP-001",
		Attachments:     []string{"quote.pdf"},
	}
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*RequestFields)
		wantErr string
	}{
		{"Valid", func(*RequestFields) {}, ""},
		{"Zero Cost", func(f *RequestFields) { f.CostEstimate = 0 }, ""},
		{"No SOP", func(f *RequestFields) { f.SOPReference = "" }, ""},
		{"Short Title", func(f *RequestFields) { f.Title = "abc" }, "title"},
		{"Long Title", func(f *RequestFields) { f.Title = strings.Repeat("x", 201) }, "title"},
		{"Short Purpose", func(f *RequestFields) { f.Purpose = "too short" }, "purpose"},
		{"Missing College", func(f *RequestFields) { f.College = " " }, "college"},
		{"Missing Department", func(f *RequestFields) { f.Department = "" }, "department"},
		{"Missing Category", func(f *RequestFields) { f.ExpenseCategory = "" }, "category"},
		{"Negative Cost", func(f *RequestFields) { f.CostEstimate = -1 }, "cost"},
		{"NaN Cost", func(f *RequestFields) { f.CostEstimate = math.NaN() }, "cost"},
		{"Bad SOP", func(f *RequestFields) { f.SOPReference = "sop 1" }, "SOP"},
		{"Empty Attachment", func(f *RequestFields) { f.Attachments = []string{""} }, "attachment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			err := ValidateRequest(f)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSOPCode(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateSOPCode("SOP-001"))
	assert.NoError(t, ValidateSOPCode("sop-eq-01"))
	assert.Error(t, ValidateSOPCode("-SOP"))
	assert.Error(t, ValidateSOPCode("S"))
	assert.Error(t, ValidateSOPCode("SOP_001"))
}

func TestValidateFiscalYear(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateFiscalYear("2024-25"))
	assert.Error(t, ValidateFiscalYear("2024"))
	assert.Error(t, ValidateFiscalYear("FY24"))
}

func TestValidateNotes(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateNotes(strings.Repeat("n", 4000)))
	assert.Error(t, ValidateNotes(strings.Repeat("n", 4001)))
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateEmail("dean@srm.edu"))
	assert.Error(t, ValidateEmail("dean@"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@x.edu"))
}
