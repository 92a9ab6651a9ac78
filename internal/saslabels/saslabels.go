// Package saslabels decodes SAS artifacts carried by the I-94 dataset:
// the label description file mapping numeric I-94 codes to their
// human-readable values, and the SAS numeric date encoding used by the
// arrival and departure columns.
package saslabels

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// sasEpoch is day zero of SAS numeric dates.
var sasEpoch = time.Date(1960, time.January, 1, 0, 0, 0, 0, time.UTC)

// Labels holds the raw content of an I94 SAS label descriptions file and
// lazily extracts its value sets.
type Labels struct {
	content string
}

// Parse reads a label descriptions file.
func Parse(r io.Reader) (*Labels, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading labels: %w", err)
	}
	// Tabs only pad the layout and get in the way of line splitting.
	return &Labels{content: strings.ReplaceAll(string(data), "\t", "")}, nil
}

// ParseFile reads a label descriptions file from disk.
func ParseFile(path string) (*Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening labels file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// ValueSet extracts the code-to-description mapping of a named value set
// (for example "i94cntyl", "i94model" or "i94addrl"). The set spans from
// the first occurrence of its name to the next semicolon; each line holds
// one "code = 'description'" pair. Malformed lines are skipped, as the
// file carries free-form commentary between sets.
func (l *Labels) ValueSet(name string) (map[string]string, error) {
	start := strings.Index(l.content, name)
	if start < 0 {
		return nil, fmt.Errorf("value set %q not found", name)
	}
	section := l.content[start:]
	end := strings.Index(section, ";")
	if end < 0 {
		return nil, fmt.Errorf("value set %q is not terminated", name)
	}
	section = section[:end]

	mapping := make(map[string]string)
	lines := strings.Split(section, "\n")
	for _, line := range lines[1:] {
		line = strings.ReplaceAll(line, "'", "")
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		mapping[key] = value
	}

	if len(mapping) == 0 {
		return nil, fmt.Errorf("value set %q is empty", name)
	}
	return mapping, nil
}

// VisaCategories is the fixed i94visa mapping; it is documented in the
// label file as commentary rather than as a value set.
func VisaCategories() map[string]string {
	return map[string]string{
		"1": "Business",
		"2": "Pleasure",
		"3": "Student",
	}
}

// Date converts a SAS numeric date (days since 1960-01-01) to a UTC time.
func Date(days int64) time.Time {
	return sasEpoch.AddDate(0, 0, int(days))
}

// DateISO renders a SAS numeric date as an ISO-8601 date string.
func DateISO(days int64) string {
	return Date(days).Format("2006-01-02")
}
