package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/capdigest/internal/doctree"
)

// csvBatchRows is how many data rows go into one section.
const csvBatchRows = 20

// CSVParser handles CSV files. The first row names the columns; data rows are
// rendered as "column: value" lines in sections of csvBatchRows rows.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: titleOf(filename)}
	if len(records) < 2 {
		return tree, nil
	}

	headers, rows := records[0], records[1:]
	for start := 0; start < len(rows); start += csvBatchRows {
		end := min(start+csvBatchRows, len(rows))

		var text strings.Builder
		for _, row := range rows[start:end] {
			cells := make([]string, 0, len(row))
			for j, cell := range row {
				if cell = strings.TrimSpace(cell); cell == "" {
					continue
				}
				if j < len(headers) && headers[j] != "" {
					cell = headers[j] + ": " + cell
				}
				cells = append(cells, cell)
			}
			if len(cells) > 0 {
				text.WriteString(strings.Join(cells, "; "))
				text.WriteByte('\n')
			}
		}

		tree.Children = append(tree.Children, &doctree.DocNode{
			// Spreadsheet row numbers: the header is row 1.
			Title: fmt.Sprintf("Rows %d-%d", start+2, end+1),
			Text:  strings.TrimSpace(text.String()),
		})
	}
	return tree, nil
}
