package seed

import (
	"fmt"

	"approvals/internal/models"
	"approvals/internal/service"
	"approvals/internal/workflow"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds plausible demo entities from the fixture vocabulary.
// It never touches the database.
type Factory struct {
	faker    *gofakeit.Faker
	fixtures *Fixtures
}

// NewFactory returns a factory. The same seed yields the same sequence.
func NewFactory(seed int64, f *Fixtures) *Factory {
	return &Factory{faker: gofakeit.New(seed), fixtures: f}
}

func (f *Factory) pick(options []string, fallback string) string {
	if len(options) == 0 {
		return fallback
	}
	return options[f.faker.Number(0, len(options)-1)]
}

// RequestInput builds the descriptive fields of a request.
func (f *Factory) RequestInput() service.RequestInput {
	category := f.pick(f.fixtures.Categories, "Equipment")
	in := service.RequestInput{
		Title:           fmt.Sprintf("%s: %s %s", category, f.faker.HipsterWord(), f.faker.BuzzWord()),
		Purpose:         f.faker.Sentence(12),
		College:         f.pick(f.fixtures.Colleges, "Engineering"),
		Department:      f.pick(f.fixtures.Departments, "Computer Science"),
		CostEstimate:    float64(f.faker.Number(5_000, 105_000)),
		ExpenseCategory: category,
		Attachments:     []string{fmt.Sprintf("quotes/%s.pdf", f.faker.UUID())},
	}
	if len(f.fixtures.SOPs) > 0 {
		in.SOPReference = f.fixtures.SOPs[f.faker.Number(0, len(f.fixtures.SOPs)-1)].Code
	}
	return in
}

// User builds an active account for role with a random identity. The
// password is left for the caller to hash.
func (f *Factory) User(role workflow.Role) *models.User {
	return &models.User{
		Email:      f.faker.Email(),
		Name:       f.faker.Name(),
		EmpID:      fmt.Sprintf("EMP%06d", f.faker.Number(1, 999_999)),
		Role:       role,
		College:    f.pick(f.fixtures.Colleges, "Engineering"),
		Department: f.pick(f.fixtures.Departments, "Computer Science"),
		IsActive:   true,
	}
}

// Notes returns a short reviewer remark.
func (f *Factory) Notes() string {
	return f.faker.Sentence(6)
}

// Chance reports true with probability percent/100.
func (f *Factory) Chance(percent int) bool {
	return f.faker.Number(1, 100) <= percent
}

// Intn returns a number in [0, n).
func (f *Factory) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}
