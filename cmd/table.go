package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// writeTable writes rows under headers with columns padded to their widest
// cell. Widths are display widths, so region names in wide scripts line up.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	line := func(cells []string) string {
		padded := make([]string, len(cells))
		for i, cell := range cells {
			if i == len(cells)-1 {
				padded[i] = cell
				continue
			}
			padded[i] = runewidth.FillRight(cell, widths[i])
		}
		return strings.TrimRight(strings.Join(padded, "  "), " ")
	}

	rules := make([]string, len(headers))
	for i, width := range widths {
		rules[i] = strings.Repeat("-", width)
	}

	if _, err := fmt.Fprintln(w, line(headers)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, line(rules)); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, line(row)); err != nil {
			return err
		}
	}
	return nil
}
