package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/GharaibehR/Chief-of-Staff/coreengine/compose"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printField(w io.Writer, name, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Fprintf(w, "  %-10s %s\n", color.New(color.Faint).Sprint(name), value)
}

// printResult renders a Result for a terminal.
func printResult(w io.Writer, r *compose.Result) {
	if r.Success {
		fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), r.Message)
	} else {
		fmt.Fprintf(w, "%s %s\n", color.RedString("✗"), r.Message)
	}

	printField(w, "intent", r.Intent)
	if s := r.ProcessingSummary; s != nil {
		printField(w, "agents", fmt.Sprint(s.TotalAgents))
		printField(w, "complexity", string(s.Complexity))
		printField(w, "took", s.TotalProcessingTime.Round(time.Millisecond).String())
	}
	if r.Error != "" {
		printField(w, "error", color.YellowString(r.Error))
	}

	items, label := r.Results, "result"
	if !r.Success {
		items, label = r.PartialResults, "partial"
	}
	for i, item := range items {
		data, err := json.MarshalIndent(item, "    ", "  ")
		if err != nil {
			data = []byte(fmt.Sprint(item))
		}
		fmt.Fprintf(w, "  %s %d\n    %s\n", color.CyanString(label), i+1, strings.TrimSpace(string(data)))
	}
}
