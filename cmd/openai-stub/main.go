// Command openai-stub is a minimal OpenAI-compatible server for exercising
// the pipeline without a real model. It answers every extraction request with
// a fixed, well-formed job payload; START_GENERIC=1 makes it answer the
// primary-extraction prompt with placeholders so escalation can be tested.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

const richJob = `{
    "title": "Senior Backend Engineer",
    "company": "Acme Corp",
    "location": "Remote",
    "employment_type": "Full-time",
    "salary": "$120,000",
    "date_posted": "2025-01-01",
    "description": "Own the billing services end to end, from schema design through deployment and on-call rotation.",
    "tech_skills": ["Python", "AWS", "PostgreSQL"],
    "soft_skills": ["Communication", "Teamwork"],
    "requirements": ["5 years backend experience", "Production AWS experience"],
    "benefits": ["Health insurance", "Remote budget"],
    "seniority": "Senior"
}`

const genericJob = `{
    "title": "Job Position",
    "company": "Company",
    "location": "Not specified",
    "salary": "Not specified",
    "description": "",
    "tech_skills": [],
    "soft_skills": [],
    "requirements": [],
    "benefits": []
}`

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	startGeneric := os.Getenv("START_GENERIC") == "1"

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		sys := ""
		if len(req.Messages) > 0 {
			sys = strings.TrimSpace(req.Messages[0].Content)
		}
		var content string
		switch {
		case strings.Contains(sys, "job data extraction expert"):
			// Primary extraction prompt.
			if startGeneric {
				content = genericJob
			} else {
				// Fenced on purpose: the client must strip markdown wrapping.
				content = "```json\n" + richJob + "\n```"
			}
		case strings.Contains(sys, "intelligent job data extraction"):
			// Escalation prompt always answers richly.
			content = richJob
		default:
			http.Error(w, "unexpected system prompt", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
