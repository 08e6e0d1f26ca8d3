// Package vocab holds the static keyword tables the extractors match against:
// technical skills, soft skills, and role-category keyword maps. The tables
// are versioned and loaded once at startup; an optional YAML file can replace
// them wholesale so vocabulary churn never touches matching logic.
package vocab

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tables bundles every dictionary the extraction pipeline consults.
type Tables struct {
	Version int `yaml:"version"`
	// TechSkills and SoftSkills are matched case-insensitively as substrings
	// of the normalized posting text.
	TechSkills []string `yaml:"tech_skills"`
	SoftSkills []string `yaml:"soft_skills"`
	// RoleSkills maps a role-category keyword (found in a URL slug or title)
	// to the skill set typically implied by that role.
	RoleSkills map[string][]string `yaml:"role_skills"`
}

// Default returns the built-in tables. Callers must not mutate the result.
func Default() *Tables {
	return &defaultTables
}

// Load reads tables from a YAML file, falling back to the defaults when the
// path is empty. A file that parses but carries no skills is rejected so a
// bad override cannot silently disable extraction.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocab file: %w", err)
	}
	var t Tables
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse vocab file: %w", err)
	}
	if len(t.TechSkills) == 0 || len(t.SoftSkills) == 0 {
		return nil, fmt.Errorf("vocab file %s: tech_skills and soft_skills must be non-empty", path)
	}
	if t.RoleSkills == nil {
		t.RoleSkills = defaultTables.RoleSkills
	}
	return &t, nil
}

var defaultTables = Tables{
	Version: 1,
	TechSkills: []string{
		"python", "javascript", "java", "react", "node.js", "angular", "vue", "typescript",
		"html", "css", "sql", "postgresql", "mysql", "mongodb", "redis", "aws", "azure",
		"gcp", "docker", "kubernetes", "terraform", "jenkins", "git", "github", "gitlab",
		"linux", "unix", "bash", "shell", "php", "ruby", "go", "rust", "c++", "c#",
		"scala", "kotlin", "swift", "flutter", "react native", "devops", "ci/cd",
		"machine learning", "ai", "data science", "blockchain", "microservices",
		"api", "rest", "graphql", "websocket", "nginx", "apache", "elasticsearch",
	},
	SoftSkills: []string{
		"communication", "leadership", "teamwork", "problem-solving", "adaptability",
		"creativity", "time management", "organization", "collaboration", "mentoring",
		"project management", "agile", "scrum", "customer service", "analytical thinking",
		"critical thinking", "attention to detail", "multitasking", "stress management",
	},
	RoleSkills: map[string][]string{
		"frontend":  {"JavaScript", "TypeScript", "React", "HTML5", "CSS3", "Node.js", "Git"},
		"backend":   {"Python", "Node.js", "PostgreSQL", "REST APIs", "Docker", "AWS", "Git"},
		"fullstack": {"JavaScript", "Python", "React", "Node.js", "PostgreSQL", "MongoDB", "Git"},
		"data":      {"Python", "SQL", "Pandas", "Machine Learning", "Tableau", "R"},
		"devops":    {"AWS", "Docker", "Kubernetes", "Jenkins", "Terraform"},
		"mobile":    {"React Native", "Flutter", "Swift", "Kotlin"},
	},
}
