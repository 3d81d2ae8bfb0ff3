package core

import "strings"

// CategoryGroup is a named group with an ordered list of category labels,
// editable from settings.
type CategoryGroup struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

// DefaultCategoryGroups is the seed set for fresh installs. Stored sets
// missing any of these are migrated in place by MergeDefaultGroups.
func DefaultCategoryGroups() []CategoryGroup {
	return []CategoryGroup{
		{Name: "Essentials", Labels: []string{"Rent", "Groceries", "Utilities", "Transport", "Health"}},
		{Name: "Business", Labels: []string{"Salaries", "Supplies", "Marketing", "Taxes"}},
		{Name: "Income", Labels: []string{"Sales", "Services", "Investor Fund", "Other Income"}},
		{Name: "Lifestyle", Labels: []string{"Dining", "Entertainment", "Shopping", "Travel"}},
	}
}

// MergeDefaultGroups migrates a stored group set against the defaults:
// default groups missing from the stored set are appended, and default
// labels missing from an existing group are appended at the end. User
// entries are never reordered or removed. Returns the merged set and
// whether anything changed.
func MergeDefaultGroups(existing, defaults []CategoryGroup) ([]CategoryGroup, bool) {
	changed := false
	byName := make(map[string]int, len(existing))
	merged := make([]CategoryGroup, len(existing))
	for i, g := range existing {
		merged[i] = CategoryGroup{Name: g.Name, Labels: append([]string(nil), g.Labels...)}
		byName[strings.ToLower(g.Name)] = i
	}

	for _, def := range defaults {
		idx, ok := byName[strings.ToLower(def.Name)]
		if !ok {
			merged = append(merged, CategoryGroup{Name: def.Name, Labels: append([]string(nil), def.Labels...)})
			changed = true
			continue
		}
		have := make(map[string]struct{}, len(merged[idx].Labels))
		for _, l := range merged[idx].Labels {
			have[strings.ToLower(l)] = struct{}{}
		}
		for _, l := range def.Labels {
			if _, ok := have[strings.ToLower(l)]; !ok {
				merged[idx].Labels = append(merged[idx].Labels, l)
				changed = true
			}
		}
	}
	return merged, changed
}

func (g CategoryGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyCategory
	}
	for _, l := range g.Labels {
		if strings.TrimSpace(l) == "" {
			return ErrEmptyCategory
		}
	}
	return nil
}
