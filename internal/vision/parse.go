package vision

import (
	"strings"
	"unicode"
)

// NormalizeLabels turns a model reply into a comma-delimited label string.
// Models asked for comma-separated values sometimes answer with a bulleted
// or numbered list instead, occasionally behind a preamble line.
func NormalizeLabels(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	labels := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Skip common headers or non-item lines
		if strings.HasPrefix(line, "Here") || strings.HasPrefix(line, "I see") || strings.HasPrefix(line, "Based on") {
			continue
		}

		line = strings.TrimSpace(stripMarker(line))
		line = strings.TrimSuffix(line, ".")
		for _, part := range strings.Split(line, ",") {
			if part = strings.TrimSpace(part); part != "" {
				labels = append(labels, part)
			}
		}
	}

	return strings.Join(labels, ", ")
}

// stripMarker removes a leading list marker such as "-", "*", "•" or "3.".
func stripMarker(line string) string {
	switch {
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
		return line[2:]
	case strings.HasPrefix(line, "• "):
		return strings.TrimPrefix(line, "• ")
	}

	i := 0
	for i < len(line) && unicode.IsDigit(rune(line[i])) {
		i++
	}
	if i > 0 && i+1 < len(line) && (line[i] == '.' || line[i] == ')') && line[i+1] == ' ' {
		return line[i+2:]
	}
	return line
}
