package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// formatResults renders per-file scan outcomes in the chosen encoding.
func formatResults(files []FileResult, format string) (string, error) {
	switch format {
	case "json", "":
		return formatJSON(files)
	case "csv":
		return formatCSV(files)
	case "text":
		return formatText(files), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatJSON(files []FileResult) (string, error) {
	b, err := json.MarshalIndent(files, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// formatCSV emits one row per identified drug.
func formatCSV(files []FileResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"path", "drug_id", "drug_name", "confidence", "action", "error"})
	for _, f := range files {
		if f.Error != "" {
			_ = w.Write([]string{f.Path, "", "", "", "", f.Error})
			continue
		}
		if len(f.Result.Drugs) == 0 {
			_ = w.Write([]string{f.Path, "", "", "", "", ""})
			continue
		}
		for _, d := range f.Result.Drugs {
			_ = w.Write([]string{
				f.Path,
				d.DrugID,
				d.Name,
				strconv.FormatFloat(d.Confidence, 'f', 1, 64),
				string(d.Action),
				"",
			})
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func formatText(files []FileResult) string {
	var sb strings.Builder
	for _, f := range files {
		if f.Error != "" {
			fmt.Fprintf(&sb, "%s: error: %s\n", f.Path, f.Error)
			continue
		}
		if len(f.Result.Drugs) == 0 {
			fmt.Fprintf(&sb, "%s: no drugs identified\n", f.Path)
			continue
		}
		for _, d := range f.Result.Drugs {
			fmt.Fprintf(&sb, "%s: %s (%.1f, %s)\n", f.Path, d.Name, d.Confidence, d.Action)
		}
	}
	return sb.String()
}
