// Package seed loads reference data (accounts, budgets and SOPs) and creates
// demo requests for development and testing.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"approvals/internal/models"
	"approvals/internal/repository"
	"approvals/internal/workflow"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures/reference.yaml
var referenceYAML []byte

// UserFixture is one seeded account.
type UserFixture struct {
	Role workflow.Role `yaml:"role"`
	Name string        `yaml:"name"`
}

// SOPFixture is one seeded SOP record.
type SOPFixture struct {
	Code                string   `yaml:"code"`
	Title               string   `yaml:"title"`
	Description         string   `yaml:"description"`
	College             string   `yaml:"college"`
	Department          string   `yaml:"department"`
	RequiresBudgetCheck bool     `yaml:"requires_budget_check"`
	MinimumAmount       *float64 `yaml:"minimum_amount"`
}

// Fixtures is the reference data set shipped with the binary.
type Fixtures struct {
	FiscalYear      string        `yaml:"fiscal_year"`
	DefaultPassword string        `yaml:"default_password"`
	Colleges        []string      `yaml:"colleges"`
	Departments     []string      `yaml:"departments"`
	Categories      []string      `yaml:"categories"`
	Users           []UserFixture `yaml:"users"`
	SOPs            []SOPFixture  `yaml:"sops"`
}

// LoadFixtures parses raw YAML fixtures; nil raw selects the embedded set.
func LoadFixtures(raw []byte) (*Fixtures, error) {
	if raw == nil {
		raw = referenceYAML
	}
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for _, u := range f.Users {
		if !u.Role.Valid() {
			return nil, fmt.Errorf("fixture user %q has unknown role %q", u.Name, u.Role)
		}
	}
	if f.DefaultPassword == "" {
		return nil, fmt.Errorf("fixtures need a default_password")
	}
	return &f, nil
}

// UserEmail is the login address of the seeded account for role.
func UserEmail(role workflow.Role) string {
	return string(role) + "@srm.edu"
}

// ReferenceOptions tunes Reference.
type ReferenceOptions struct {
	// FiscalYear overrides the fixture fiscal year for budget records.
	FiscalYear string
	// SkipBcrypt stores a cheap hash, which keeps tests fast.
	SkipBcrypt bool
	// BudgetSeed makes the generated budget amounts reproducible.
	BudgetSeed int64
}

// Reference upserts the fixture accounts, SOP records and one budget record
// per college, department and category. Running it again converges on the
// same data set.
func Reference(ctx context.Context, db *gorm.DB, f *Fixtures, opts ReferenceOptions) error {
	users := repository.NewUserRepository(db)
	sops := repository.NewSOPRepository(db)
	budgets := repository.NewBudgetRepository(db)

	cost := bcrypt.DefaultCost
	if opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(f.DefaultPassword), cost)
	if err != nil {
		return fmt.Errorf("hash default password: %w", err)
	}

	college, department := "", ""
	if len(f.Colleges) > 0 {
		college = f.Colleges[0]
	}
	if len(f.Departments) > 0 {
		department = f.Departments[0]
	}

	for _, u := range f.Users {
		user := &models.User{
			Email:      UserEmail(u.Role),
			Name:       u.Name,
			EmpID:      "EMP" + strings.ToUpper(string(u.Role)),
			Password:   string(hash),
			Role:       u.Role,
			College:    college,
			Department: department,
			IsActive:   true,
		}
		if err := users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", user.Email, err)
		}
	}

	for _, s := range f.SOPs {
		record := &models.SOPRecord{
			Code:                strings.ToUpper(s.Code),
			Title:               s.Title,
			Description:         s.Description,
			College:             s.College,
			RequiresBudgetCheck: s.RequiresBudgetCheck,
			MinimumAmount:       s.MinimumAmount,
			IsActive:            true,
		}
		if s.Department != "" {
			dept := s.Department
			record.Department = &dept
		}
		if err := sops.Upsert(ctx, record); err != nil {
			return fmt.Errorf("seed sop %s: %w", record.Code, err)
		}
	}

	fiscalYear := opts.FiscalYear
	if fiscalYear == "" {
		fiscalYear = f.FiscalYear
	}
	faker := gofakeit.New(opts.BudgetSeed)
	for _, c := range f.Colleges {
		for _, d := range f.Departments {
			for _, cat := range f.Categories {
				allocated := float64(faker.Number(100_000, 1_100_000))
				spent := float64(faker.Number(0, 50_000))
				record := &models.BudgetRecord{
					College:    c,
					Department: d,
					Category:   cat,
					FiscalYear: fiscalYear,
					Allocated:  allocated,
					Spent:      spent,
					Available:  allocated - spent,
				}
				if err := budgets.Upsert(ctx, record); err != nil {
					return fmt.Errorf("seed budget %s/%s/%s: %w", c, d, cat, err)
				}
			}
		}
	}

	return nil
}

// ReferenceData loads the embedded fixtures into an empty database. A
// database that already has accounts is left untouched so restarts never
// overwrite budget figures.
func ReferenceData(ctx context.Context, db *gorm.DB, fiscalYear string) error {
	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if users > 0 {
		return nil
	}

	f, err := LoadFixtures(nil)
	if err != nil {
		return err
	}
	return Reference(ctx, db, f, ReferenceOptions{FiscalYear: fiscalYear, BudgetSeed: 2024})
}
