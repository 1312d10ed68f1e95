package editor

import "testing"

func newSectionsEditor() *Editor {
	return New(nil, nil, nil, nil, nil, nil, nil, "Template1", "")
}

func TestSetFormField(t *testing.T) {
	ed := newSectionsEditor()

	if err := ed.SetFormField(FormEmail, "grace@example.com"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	if got := ed.Form().Email; got != "grace@example.com" {
		t.Fatalf("unexpected email %q", got)
	}

	if err := ed.SetFormField(FormField(99), "x"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestEducation_AddUpdateRemove(t *testing.T) {
	ed := newSectionsEditor()

	ed.AddEducation()
	entries := ed.EducationEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after add, got %d", len(entries))
	}

	if err := ed.UpdateEducation(1, EducationMajor, "Computer Science"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := ed.EducationEntries()[1].Major; got != "Computer Science" {
		t.Fatalf("unexpected major %q", got)
	}

	if err := ed.RemoveEducation(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entries = ed.EducationEntries()
	if len(entries) != 1 || entries[0].Major != "Computer Science" {
		t.Fatalf("remove kept wrong entry: %v", entries)
	}
}

func TestEducation_IndexOutOfRange(t *testing.T) {
	ed := newSectionsEditor()

	if err := ed.UpdateEducation(5, EducationMajor, "x"); err == nil {
		t.Fatal("expected update out-of-range error")
	}
	if err := ed.UpdateEducation(-1, EducationMajor, "x"); err == nil {
		t.Fatal("expected update negative-index error")
	}
	if err := ed.RemoveEducation(5); err == nil {
		t.Fatal("expected remove out-of-range error")
	}
	if got := len(ed.EducationEntries()); got != 1 {
		t.Fatalf("failed calls must not mutate, got %d entries", got)
	}
}

func TestExperience_UpdateTargetsSingleField(t *testing.T) {
	ed := newSectionsEditor()

	if err := ed.UpdateExperience(1, ExperienceTitle, "Staff Engineer"); err != nil {
		t.Fatalf("update: %v", err)
	}
	entries := ed.ExperienceEntries()
	if entries[1].Title != "Staff Engineer" {
		t.Fatalf("unexpected title %q", entries[1].Title)
	}
	if entries[0].Title != defaultExperienceEntry().Title || entries[2].Title != defaultExperienceEntry().Title {
		t.Fatal("sibling entries must stay untouched")
	}
	if entries[1].Year != defaultExperienceEntry().Year {
		t.Fatal("other fields of the entry must stay untouched")
	}
}

func TestSkill_AddRemove(t *testing.T) {
	ed := newSectionsEditor()

	ed.AddSkill()
	if got := len(ed.SkillEntries()); got != 6 {
		t.Fatalf("expected 6 skills after add, got %d", got)
	}
	if err := ed.UpdateSkill(5, SkillPercentage, "40"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := ed.SkillEntries()[5].Percentage; got != "40" {
		t.Fatalf("unexpected percentage %q", got)
	}
	if err := ed.RemoveSkill(5); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := len(ed.SkillEntries()); got != 5 {
		t.Fatalf("expected 5 skills after remove, got %d", got)
	}
}

func TestEntries_ReturnCopies(t *testing.T) {
	ed := newSectionsEditor()

	snapshot := ed.SkillEntries()
	snapshot[0].Title = "mutated"
	if got := ed.SkillEntries()[0].Title; got == "mutated" {
		t.Fatal("snapshot mutation leaked into editor state")
	}
}
