package vocab

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_HasTables(t *testing.T) {
	tabs := Default()
	if len(tabs.TechSkills) == 0 || len(tabs.SoftSkills) == 0 {
		t.Fatalf("default tables must be populated")
	}
	if len(tabs.RoleSkills) == 0 {
		t.Fatalf("default role skills must be populated")
	}
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	tabs, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tabs.TechSkills) != len(Default().TechSkills) {
		t.Fatalf("expected default tables")
	}
}

func TestLoad_OverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	content := "version: 2\ntech_skills: [go, zig]\nsoft_skills: [patience]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	tabs, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tabs.Version != 2 || len(tabs.TechSkills) != 2 {
		t.Fatalf("override not applied: %+v", tabs)
	}
	// Role map falls back to defaults when the override omits it.
	if len(tabs.RoleSkills) == 0 {
		t.Fatalf("expected default role skills to backfill")
	}
}

func TestLoad_RejectsEmptySkills(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	if err := os.WriteFile(path, []byte("version: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty skill tables")
	}
}
