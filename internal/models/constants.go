// Package models contains data types and protocol constants for the chat stream API.
package models

// DefaultEndpoint is the chat endpoint used when none is configured.
const DefaultEndpoint = "http://localhost:8787/api/chat"

// ResponseField is the key of the text fragment in each stream line.
const ResponseField = "response"

// FallbackText replaces the assistant reply of a turn that failed.
const FallbackText = "Sorry, there was an error processing your request."

// DefaultSystemPrompt is the fixed instruction used when no persona provides one.
const DefaultSystemPrompt = `You are a fast, trustworthy personal assistant.
Be correct, then concise, then action-oriented.
Write plainly with short sentences. Prefer lists when they improve scanning.
If a request is blocked by missing information, ask up to two crisp questions.
Otherwise state your assumption and proceed.`

// ChatRequest is the JSON body posted to the chat endpoint on every turn.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// DefaultHeaders returns the headers sent with every chat request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type":    "application/json",
		"Accept":          "application/x-ndjson, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
		"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	}
}
