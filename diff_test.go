package translatex

import "testing"

func TestDiffTexts(t *testing.T) {
	before := []string{"Hello", "World", "Contact us"}
	after := []string{"Hello", "Planet", "Contact us", "New section"}

	diff := DiffTexts(before, after)

	if got := diff.Stats(); got.Added != 2 || got.Removed != 1 || got.Unchanged != 2 {
		t.Errorf("Stats = %+v, want 2 added / 1 removed / 2 unchanged", got)
	}
	if !diff.HasChanges() {
		t.Error("HasChanges = false, want true")
	}

	needs := diff.NeedsTranslation()
	if len(needs) != 2 || needs[0] != "Planet" || needs[1] != "New section" {
		t.Errorf("NeedsTranslation = %v, want [Planet, New section]", needs)
	}
	if len(diff.Removed) != 1 || diff.Removed[0] != "World" {
		t.Errorf("Removed = %v, want [World]", diff.Removed)
	}
}

func TestDiffTexts_NoChanges(t *testing.T) {
	texts := []string{"Hello", "World"}
	diff := DiffTexts(texts, texts)

	if diff.HasChanges() {
		t.Error("HasChanges = true for identical inputs")
	}
	if len(diff.Unchanged) != 2 {
		t.Errorf("Unchanged = %v, want both texts", diff.Unchanged)
	}
}

func TestDiffTexts_Empty(t *testing.T) {
	diff := DiffTexts(nil, []string{"Hello"})
	if len(diff.Added) != 1 || diff.Added[0] != "Hello" {
		t.Errorf("Added = %v, want [Hello]", diff.Added)
	}

	diff = DiffTexts([]string{"Hello"}, nil)
	if len(diff.Removed) != 1 || diff.HasChanges() != true {
		t.Errorf("Removed = %v", diff.Removed)
	}
}
