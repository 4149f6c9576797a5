package csvimport

import (
	"fmt"
	"strings"
)

// Row is one structurally valid guest row from an uploaded CSV file.
type Row struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Email   string `json:"email"`
	PlusOne string `json:"plus_one,omitempty"`
}

// requiredColumns is the exact header set an import file must carry.
// Order does not matter; columns are matched by name.
var requiredColumns = []string{"name", "slug", "email", "plus one"}

// Parse reads an uploaded guest list. The format is deliberately not
// full RFC 4180: fields are comma separated, may be double-quoted with
// "" as an escaped quote, and every field value is trimmed. A row
// missing name, slug or email fails the whole parse; there is no
// partial acceptance.
func Parse(text string) ([]Row, error) {
	text = strings.TrimPrefix(text, "\uFEFF")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}

	header := parseLine(lines[0])
	for i, column := range header {
		header[i] = strings.ToLower(strings.TrimSpace(column))
	}

	index := make(map[string]int, len(header))
	for i, column := range header {
		index[column] = i
	}

	var missing []string
	for _, column := range requiredColumns {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}

	allowed := make(map[string]bool, len(requiredColumns))
	for _, column := range requiredColumns {
		allowed[column] = true
	}
	var disallowed []string
	for _, column := range header {
		if !allowed[column] {
			disallowed = append(disallowed, column)
		}
	}
	if len(disallowed) > 0 {
		return nil, fmt.Errorf("only these columns are allowed: %s. found disallowed column(s): %s",
			strings.Join(requiredColumns, ", "), strings.Join(disallowed, ", "))
	}

	field := func(values []string, column string) string {
		i := index[column]
		if i >= len(values) {
			return ""
		}
		return strings.TrimSpace(values[i])
	}

	rows := make([]Row, 0, len(lines)-1)
	for rowIndex, line := range lines[1:] {
		values := parseLine(line)
		row := Row{
			Name:    field(values, "name"),
			Slug:    field(values, "slug"),
			Email:   strings.ToLower(field(values, "email")),
			PlusOne: field(values, "plus one"),
		}
		if row.Name == "" || row.Slug == "" || row.Email == "" {
			// Row numbers are 1-based and offset by the header row.
			return nil, fmt.Errorf("row %d is missing required values for name, slug, or email", rowIndex+2)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// parseLine tokenizes one CSV line. A double quote toggles quoted-field
// state, "" inside quotes is a literal quote, and commas outside quotes
// end the field.
func parseLine(line string) []string {
	var result []string
	var current strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		char := runes[i]

		if char == '"' && inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
			current.WriteRune('"')
			i++
			continue
		}
		if char == '"' {
			inQuotes = !inQuotes
			continue
		}
		if char == ',' && !inQuotes {
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		current.WriteRune(char)
	}

	result = append(result, strings.TrimSpace(current.String()))
	return result
}
