package llm

import (
	"fmt"
	"strings"
)

// BuildFormatPrompt is the instruction sent to the formatter along with the transcript.
func BuildFormatPrompt(req FormatRequest) string {
	template := req.Template
	if strings.TrimSpace(template) == "" {
		template = "No template provided."
	}
	style := req.Style
	if style == "" {
		style = "detailed"
	}

	return fmt.Sprintf(`Given the below transcript, you have several tasks:
1. Format the notes based on the selected note style: %s.
2. Use the following custom formatting template if provided: %s
3. Incorporate the following tags for categorization: %s.
4. Ensure the output is in markdown format with structured content, such as headers, lists, tables, bullet points, etc.
**Important note: Due to markdown rendering limitations, specifically for mathematical formulas, do not use markdown/latex syntax. Instead, use plain text representation.**
Also ensure that the generated text is in really good formatting, with good headings, bullet points, line breaks to enhance readability, etc.
Here's the transcript: %s`, style, template, strings.Join(req.Tags, ", "), req.Transcript)
}

// BuildQuizPrompt asks for questionCount four-option questions as a JSON object.
func BuildQuizPrompt(noteText string, questionCount int) string {
	return fmt.Sprintf(`Generate a multiple-choice quiz based on the following notes.
Create %d questions with 4 options each.
For each question, provide:
1. The question text
2. Four possible answers (one correct, three incorrect)
3. The index of the correct answer (0-3)
4. A brief explanation of why the answer is correct

Format the response as a JSON object with this structure:
{
    "title": "Quiz Title",
    "questions": [
        {
            "question": "Question text",
            "options": ["Option 1", "Option 2", "Option 3", "Option 4"],
            "correct_answer": 0,
            "explanation": "Explanation text"
        }
    ]
}

Notes:
%s`, questionCount, noteText)
}

// BuildTagPrompt asks for up to max comma-separated tags.
func BuildTagPrompt(title, body string, max int) string {
	return fmt.Sprintf(`Please analyze the following study notes and suggest up to %d relevant tags that would help categorize and organize them.

Title: %s
Content: %s

Instructions:
- Generate tags that capture the subject, course and main topics
- Use lowercase, single words or short phrases connected with hyphens
- Return ONLY a comma-separated list of tags, no explanations

Tags:`, max, title, body)
}
