package openrouter

const maxPromptText = 3000

func buildTextPrompt(text, contextHint string) string {
	if len(text) > maxPromptText {
		text = text[:maxPromptText]
	}

	return `You will perform two steps.

Step 1: Analyze the following document text and write a concise 1-2 line summary.` + contextHint + `
The summary MUST include important names or organizations if present.

Step 2: Generate exactly 3 English tags.
 - The first tag MUST be the document type (e.g., "Invoice", "Report", "ID Card")
 - The remaining tags should be key subjects or entities.

Return ONLY a JSON object:
{ "summary": "...", "tags": ["...","...","..."] }

TEXT: ` + text
}

func buildImagePrompt(contextHint string) string {
	return `You will perform two steps.

Step 1: Analyze this image, read visible text, and write a concise 1-2 line summary.` + contextHint + `
The summary MUST contain important names or organizations if they appear.

Step 2: Generate exactly 3 English tags.
 - First tag MUST be the general document type.
 - Two more tags must describe the content.

Return ONLY JSON:
{ "summary": "...", "tags": ["...","...","..."] }`
}
