package services

import (
	"bytes"
	"text/template"
)

var extractionPrompt = template.Must(template.New("extraction").Parse(
	`You are an AI assistant. Your task is based on the type of the input:

1. If the input is a weather-related question (contains keywords like "weather", "temperature", "forecast", "climate", etc.), extract and return only the city and country (if mentioned) in the format:
- "City,Country" (if country is included)
- "City" (if country is not included)
Return nothing else: no quotes, no explanation.

2. If the input is about distance between cities, provide:
- The approximate road distance in kilometers
- The typical driving time
- A brief note about the main route

3. If the input is any other type of question, provide a clear, accurate and direct answer based on your general knowledge.

Input: {{.}}`))

// BuildExtractionPrompt renders the instruction prompt for userText.
func BuildExtractionPrompt(userText string) string {
	var buf bytes.Buffer
	// Executing a parsed template with a string cannot fail.
	_ = extractionPrompt.Execute(&buf, userText)
	return buf.String()
}
