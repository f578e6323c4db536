package transform

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
)

// Category maps a job category to the keywords that select it.
type Category struct {
	Name     string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// CategoryTable is an ordered list of categories. When a title matches the
// keywords of several categories, the earliest entry wins.
type CategoryTable []Category

// DefaultCategories is the built-in classification table.
func DefaultCategories() CategoryTable {
	return CategoryTable{
		{Name: "IT", Keywords: []string{"developer", "programmer", "software", "data scientist", "information technology", "systems analyst", "network", "database", "web"}},
		{Name: "Engineering", Keywords: []string{"engineer", "architect", "mechanical", "electrical", "civil"}},
		{Name: "Healthcare", Keywords: []string{"nurse", "doctor", "therapist", "psychologist", "physician", "health", "medical"}},
		{Name: "Education", Keywords: []string{"teacher", "lecturer", "tutor", "professor", "education"}},
		{Name: "Arts", Keywords: []string{"artist", "illustrator", "musician", "actor", "dancer", "designer", "photographer"}},
		{Name: "Finance", Keywords: []string{"accountant", "banker", "finance", "investment", "auditor"}},
		{Name: "Legal", Keywords: []string{"lawyer", "solicitor", "attorney", "barrister", "judge"}},
		{Name: "Hospitality", Keywords: []string{"hotel", "restaurant", "hospitality", "chef", "catering"}},
		{Name: "Science", Keywords: []string{"scientist", "research", "physicist", "chemist", "biologist"}},
	}
}

// LoadCategories reads an ordered category table from a YAML sequence of
// {category, keywords} items.
func LoadCategories(path string) (CategoryTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job categories file: %w", err)
	}

	var table CategoryTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse job categories file: %w", err)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}

	return table.normalized(), nil
}

// Validate reports empty tables, unnamed categories and duplicates.
func (t CategoryTable) Validate() error {
	if len(t) == 0 {
		return errors.New("job category table is empty")
	}

	seen := make(map[string]bool, len(t))
	for i, c := range t {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("job category %d has no name", i)
		}
		if strings.EqualFold(name, domain.JobCategoryOther) {
			return fmt.Errorf("job category %q is reserved for unmatched titles", domain.JobCategoryOther)
		}
		if seen[name] {
			return fmt.Errorf("job category %q is listed twice", name)
		}
		seen[name] = true
	}
	return nil
}

// Names lists the categories in table order followed by the fallback.
func (t CategoryTable) Names() []string {
	names := make([]string, 0, len(t)+1)
	for _, c := range t {
		names = append(names, c.Name)
	}
	return append(names, domain.JobCategoryOther)
}

// Classify returns the first category whose keywords occur in the title,
// compared case-insensitively. Null or blank titles are "Other".
func (t CategoryTable) Classify(title domain.Text) string {
	if !title.Valid {
		return domain.JobCategoryOther
	}

	lower := strings.ToLower(title.String)
	if strings.TrimSpace(lower) == "" {
		return domain.JobCategoryOther
	}

	for _, c := range t {
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return c.Name
			}
		}
	}
	return domain.JobCategoryOther
}

func (t CategoryTable) normalized() CategoryTable {
	out := make(CategoryTable, len(t))
	for i, c := range t {
		keywords := make([]string, 0, len(c.Keywords))
		for _, kw := range c.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		out[i] = Category{Name: strings.TrimSpace(c.Name), Keywords: keywords}
	}
	return out
}
