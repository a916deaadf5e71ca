// Package exclusion implements the keyword policy classifier that marks
// supplier items as forbidden from syncing (veterinary lines, controlled
// substances, and assorted non-pharmacy stock). The keyword list is
// configuration, not code: it can be loaded from a YAML file and defaults to
// the curated master list.
package exclusion

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/farmaciaslf/medisync/pkg/catalog"
	"github.com/farmaciaslf/medisync/pkg/errors"
)

// DefaultKeywords is the curated master exclusion list. Matching is
// case-insensitive substring matching, so accented entries match as written.
var DefaultKeywords = []string{
	"perro", "perros", "cachorro",
	"gato", "gatos",
	"mascota", "veterinaria",
	"mundo animal", "uso veterinario",
	"metilfenidato",
	"clonazepam",
	"clotiazepam",
	"fentermina",
	"alprazolam",
	"lorazepam",
	"abolengo",
	"aromatizante",
	"detergente",
	"arena para gatos",
	"(ec)",
	"airwick",
	"veterquimica",
}

// Filter classifies supplier items against a keyword denylist.
type Filter struct {
	keywords []string
}

// New creates a filter from the given keywords. Keywords are lowercased;
// empty entries are dropped.
func New(keywords []string) *Filter {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	return &Filter{keywords: cleaned}
}

// Default creates a filter with the master keyword list.
func Default() *Filter {
	return New(DefaultKeywords)
}

// keywordsFile is the YAML shape of an exclusion config file.
type keywordsFile struct {
	Keywords []string `yaml:"keywords"`
}

// Load reads a keyword list from a YAML file of the form:
//
//	keywords:
//	  - perro
//	  - clonazepam
func Load(path string) (*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var file keywordsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if len(file.Keywords) == 0 {
		return nil, &errors.ValidationError{
			Field:   "keywords",
			Message: "exclusion file contains no keywords",
		}
	}

	return New(file.Keywords), nil
}

// Keywords returns the active keyword list.
func (f *Filter) Keywords() []string {
	return f.keywords
}

// Excluded reports whether the item matches any exclusion keyword. The
// description, lab, equivalent principle and therapeutic action are
// concatenated and matched as one lowercase string.
func (f *Filter) Excluded(item catalog.SourceItem) bool {
	if f == nil || len(f.keywords) == 0 {
		return false
	}

	text := strings.ToLower(strings.Join([]string{
		item.Description,
		item.Lab,
		item.Equivalent,
		item.TherapeuticAction,
	}, " "))

	for _, kw := range f.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Codes returns the set of trimmed product codes in items that match the
// filter. The planner uses this both to hide excluded items from the source
// view and to force archival of excluded items still live in the destination.
func (f *Filter) Codes(items []catalog.SourceItem) map[string]bool {
	codes := make(map[string]bool)
	for _, item := range items {
		if f.Excluded(item) {
			if sku := item.SKU(); sku != "" {
				codes[sku] = true
			}
		}
	}
	return codes
}

// Apply splits items into the kept subset and the number excluded.
func (f *Filter) Apply(items []catalog.SourceItem) ([]catalog.SourceItem, int) {
	kept := make([]catalog.SourceItem, 0, len(items))
	excluded := 0
	for _, item := range items {
		if f.Excluded(item) {
			excluded++
			continue
		}
		kept = append(kept, item)
	}
	return kept, excluded
}
