package commands

import (
	"fmt"
	"io"
	"strings"

	abacService "github.com/allisson/accessgate/internal/abac/service"
)

// TextClassifier derives a security label from free text.
type TextClassifier interface {
	Classify(text string) abacService.Classification
}

// RunClassify prints the label the keyword classifier assigns to text. When text is
// empty it is read from reader.
func RunClassify(classifier TextClassifier, streams IOTuple, text, format string) error {
	if text == "" {
		data, err := readAll(streams.Reader)
		if err != nil {
			return fmt.Errorf("failed to read text: %w", err)
		}
		text = string(data)
	}

	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text must not be empty")
	}

	result := classifier.Classify(text)
	compartments := []string(result.Label.Compartments)
	if compartments == nil {
		compartments = []string{}
	}
	matched := result.Matched
	if matched == nil {
		matched = []string{}
	}

	if format == "json" {
		return writeJSON(streams.Writer, map[string]interface{}{
			"level":        string(result.Label.Level),
			"compartments": compartments,
			"matched":      matched,
		})
	}

	_, _ = fmt.Fprintf(streams.Writer, "Level:        %s\n", result.Label.Level)
	_, _ = fmt.Fprintf(streams.Writer, "Compartments: %s\n", strings.Join(compartments, ", "))
	_, _ = fmt.Fprintf(streams.Writer, "Matched:      %s\n", strings.Join(matched, ", "))
	return nil
}

func readAll(reader io.Reader) ([]byte, error) {
	if reader == nil {
		return nil, nil
	}
	return io.ReadAll(reader)
}
