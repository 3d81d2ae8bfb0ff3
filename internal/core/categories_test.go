package core

import "testing"

func TestMergeDefaultGroupsAppendsMissing(t *testing.T) {
	existing := []CategoryGroup{
		{Name: "Essentials", Labels: []string{"Rent", "My Custom"}},
	}
	merged, changed := MergeDefaultGroups(existing, DefaultCategoryGroups())
	if !changed {
		t.Fatal("expected migration to report a change")
	}
	if len(merged) != len(DefaultCategoryGroups()) {
		t.Fatalf("got %d groups, want %d", len(merged), len(DefaultCategoryGroups()))
	}
	// Existing group keeps its order; defaults appended after user entries.
	ess := merged[0]
	if ess.Labels[0] != "Rent" || ess.Labels[1] != "My Custom" {
		t.Errorf("user labels reordered: %v", ess.Labels)
	}
	found := false
	for _, l := range ess.Labels[2:] {
		if l == "Groceries" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing default label not appended: %v", ess.Labels)
	}
}

func TestMergeDefaultGroupsNoChange(t *testing.T) {
	defaults := DefaultCategoryGroups()
	merged, changed := MergeDefaultGroups(defaults, defaults)
	if changed {
		t.Fatalf("identical sets should not change, got %+v", merged)
	}
}

func TestMergeDefaultGroupsCaseInsensitive(t *testing.T) {
	existing := []CategoryGroup{{Name: "essentials", Labels: []string{"rent", "Groceries", "Utilities", "Transport", "Health"}}}
	merged, changed := MergeDefaultGroups(existing, []CategoryGroup{
		{Name: "Essentials", Labels: []string{"Rent", "Groceries", "Utilities", "Transport", "Health"}},
	})
	if changed {
		t.Fatalf("matching labels in different case should not duplicate, got %+v", merged)
	}
	if len(merged[0].Labels) != 5 {
		t.Errorf("labels duplicated: %v", merged[0].Labels)
	}
}
