package domain

// Markers written into shared copies in place of private content.
const (
	RedactedValue   = "REDACTED"
	RedactedFileURL = "redacted"
)

// RedactionSummary counts the redaction markers present in a set of parts.
type RedactionSummary struct {
	ToolInputs  int `json:"tool_inputs"`
	ToolOutputs int `json:"tool_outputs"`
	ToolErrors  int `json:"tool_errors"`
	Files       int `json:"files"`
}

// HasRedactedContent reports whether any marker was found.
func (s RedactionSummary) HasRedactedContent() bool {
	return s.ToolInputs+s.ToolOutputs+s.ToolErrors+s.Files > 0
}

// Add accumulates another summary into s.
func (s *RedactionSummary) Add(o RedactionSummary) {
	s.ToolInputs += o.ToolInputs
	s.ToolOutputs += o.ToolOutputs
	s.ToolErrors += o.ToolErrors
	s.Files += o.Files
}

// DetectRedactedContent scans parts for redaction markers.
func DetectRedactedContent(parts []Part) RedactionSummary {
	var s RedactionSummary
	for _, p := range parts {
		switch p.Type {
		case PartToolInvocation:
			if isRedacted(p.Input) {
				s.ToolInputs++
			}
			if isRedacted(p.Output) {
				s.ToolOutputs++
			}
			if isRedacted(p.Error) {
				s.ToolErrors++
			}
		case PartFile:
			if p.URL == RedactedFileURL {
				s.Files++
			}
		}
	}
	return s
}

// RedactParts returns a copy of parts with tool payloads and file URLs
// replaced by markers. Text, reasoning and source parts pass through.
func RedactParts(parts []Part) []Part {
	if parts == nil {
		return nil
	}
	out := make([]Part, len(parts))
	for i, p := range parts {
		switch p.Type {
		case PartToolInvocation:
			if p.Input != nil {
				p.Input = RedactedValue
			}
			if p.Output != nil {
				p.Output = RedactedValue
			}
			if p.Error != nil {
				p.Error = RedactedValue
			}
		case PartFile:
			p.URL = RedactedFileURL
		}
		out[i] = p
	}
	return out
}

func isRedacted(v any) bool {
	s, ok := v.(string)
	return ok && s == RedactedValue
}
