package service

import "testing"

const fencedOutput = "```json\n[\n" +
	`  {"title": "3Sum", "link": "https://leetcode.com/problems/3sum/", "tags": ["Two Pointers"], "description": "Find triplets summing to zero", "difficulty": "Medium"},` + "\n" +
	`  {"title": "4Sum", "tags": ["Two Pointers"], "description": "Find quadruplets summing to a target", "difficulty": "Medium"},` + "\n" +
	`  {"title": "Two Sum II", "tags": ["Two Pointers"], "description": "Sorted-array variant", "difficulty": "Easy"},` + "\n" +
	`  {"title": "Subarray Sum Equals K", "tags": ["Prefix Sum"], "description": "Count subarrays with a given sum", "difficulty": "Medium"},` + "\n" +
	`  {"title": "Container With Most Water", "tags": ["Two Pointers"], "description": "Maximize trapped area", "difficulty": "Medium"}` + "\n" +
	"]\n```"

func TestParseSuggestionsFenced(t *testing.T) {
	suggestions := ParseSuggestions(fencedOutput)
	if len(suggestions) != 5 {
		t.Fatalf("expected 5 suggestions, got %d", len(suggestions))
	}
	for i, s := range suggestions {
		if s.Title == "" {
			t.Fatalf("suggestion %d has an empty title", i)
		}
	}
	if suggestions[0].Link == "" {
		t.Fatal("first suggestion should keep its link")
	}
}

func TestParseSuggestionsSurroundingProse(t *testing.T) {
	raw := "Sure! Here are some problems:\n[{\"title\": \"Two Sum\", \"difficulty\": \"Easy\"}]\nHappy practicing!"
	suggestions := ParseSuggestions(raw)
	if len(suggestions) != 1 || suggestions[0].Title != "Two Sum" {
		t.Fatalf("unexpected result: %+v", suggestions)
	}
}

func TestParseSuggestionsGarbage(t *testing.T) {
	cases := []string{
		"",
		"   \n\t ",
		"I cannot help with that.",
		"[not valid json]",
		"]backwards[",
		"```json\nnull\n```",
	}
	for _, raw := range cases {
		suggestions := ParseSuggestions(raw)
		if suggestions == nil {
			t.Fatalf("ParseSuggestions(%q) returned nil, want empty slice", raw)
		}
		if len(suggestions) != 0 {
			t.Fatalf("ParseSuggestions(%q) = %+v, want empty", raw, suggestions)
		}
	}
}

func TestParseSuggestionsBareFence(t *testing.T) {
	raw := "```\n[{\"title\": \"Edit Distance\", \"difficulty\": \"Hard\"}]\n```"
	suggestions := ParseSuggestions(raw)
	if len(suggestions) != 1 || suggestions[0].Difficulty != "Hard" {
		t.Fatalf("unexpected result: %+v", suggestions)
	}
}
