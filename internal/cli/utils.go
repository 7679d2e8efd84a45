// Package cli provides output formatting for the kiji command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/newsdesk/kiji/internal/models"
	"github.com/newsdesk/kiji/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact is one result per line, for piping into other tools.
	OutputCompact OutputFormat = "compact"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "text", "":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	case "compact":
		return OutputCompact, nil
	default:
		return OutputText, fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteSearchResults writes retrieval results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		for _, result := range response.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n",
				result.Rank, result.Score, result.Chunk.ArticleID,
				utils.Truncate(oneLine(result.Chunk.Text), 120))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms for %q\n\n",
		response.Total, response.QueryTime, response.Query)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
		fmt.Fprintf(w, "Article: %s | Offsets: [%d, %d)\n",
			result.Chunk.ArticleID, result.Chunk.Start, result.Chunk.End)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Chunk.Text, 200))
	}
}

// WriteAnswer writes a generated answer with its source attributions.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}
	fmt.Fprintf(w, "%s\n", answer.Text)
	if answer.Provider != "" {
		fmt.Fprintf(w, "\n(answered by %s)\n", answer.Provider)
	}
	if len(answer.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, src := range answer.Sources {
			fmt.Fprintf(w, "  %s [%d, %d) score=%.4f\n", src.ArticleID, src.Start, src.End, src.Score)
		}
	}
	return nil
}

// WriteSummary writes a summarization result.
func WriteSummary(w io.Writer, summary *models.Summary, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	fmt.Fprintf(w, "%s\n", summary.Text)
	if len(summary.Keywords) > 0 {
		fmt.Fprintf(w, "\nKeywords: %s\n", strings.Join(summary.Keywords, ", "))
	}
	fmt.Fprintf(w, "(provider: %s, confidence: %.2f", summary.Provider, summary.Confidence)
	if summary.Truncated {
		fmt.Fprint(w, ", input truncated")
	}
	fmt.Fprintln(w, ")")
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
