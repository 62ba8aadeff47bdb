// =============================================================================
// Sales Aggregator - CSV Parser Module
// =============================================================================
//
// This module reads delimited sales exports one row at a time. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Latin-1 and Windows-1252 encoded exports
//   - A leading UTF-8 byte order mark
//   - Short rows (missing trailing fields)
//
// Rows are returned RAW: header names and values keep their surrounding
// whitespace. Trimming belongs to the record normalizer so that both header
// and value are cleaned on every row, whatever state the export is in.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/sales-aggregator/internal/config"
	"github.com/ginjaninja78/sales-aggregator/internal/types"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// utf8BOM is stripped from the first header name.
const utf8BOM = "\ufeff"

// =============================================================================
// STREAMING PARSER
// =============================================================================

// StreamingParser reads a CSV source one row at a time.
//
// USAGE:
//   parser, err := NewStreamingParser(filePath, settings)
//   if err != nil {
//       return err
//   }
//   defer parser.Close()
//
//   for parser.Next() {
//       row := parser.Row()
//       // Process the row...
//   }
//
//   if err := parser.Err(); err != nil {
//       return err
//   }
type StreamingParser struct {
	closer     io.Closer
	reader     *csv.Reader
	headers    []string
	currentRow types.RawRow
	line       int
	err        error
}

// NewStreamingParser opens a CSV file and reads its header row.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: Delimiter and encoding settings.
//
// RETURNS:
//   - A pointer to the StreamingParser.
//   - An error if the file cannot be opened or its header cannot be read.
//     A file with no header at all is not an error: it simply has no rows.
func NewStreamingParser(filePath string, settings config.CSVSettings) (*StreamingParser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	parser, err := NewReaderParser(file, settings)
	if err != nil {
		file.Close()
		return nil, err
	}
	parser.closer = file

	return parser, nil
}

// NewReaderParser reads CSV rows from r. The caller keeps ownership of r.
func NewReaderParser(r io.Reader, settings config.CSVSettings) (*StreamingParser, error) {
	comma, err := settings.Comma()
	if err != nil {
		return nil, err
	}

	decoded, err := decodingReader(r, settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bufio.NewReader(decoded))
	configureReader(reader, comma)

	parser := &StreamingParser{reader: reader}
	if err := parser.readHeaders(); err != nil {
		return nil, err
	}

	return parser, nil
}

// configureReader configures the CSV reader.
func configureReader(reader *csv.Reader, comma rune) {
	reader.Comma = comma

	// Allow variable number of fields per row. Short rows are reported by
	// the normalizer as missing fields rather than failing the whole file.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true

	// Keep surrounding whitespace; the normalizer owns trimming.
	reader.TrimLeadingSpace = false

	reader.ReuseRecord = false
}

// decodingReader wraps r so that it yields UTF-8.
func decodingReader(r io.Reader, encoding string) (io.Reader, error) {
	switch config.NormalizeEncoding(encoding) {
	case "utf-8":
		return r, nil
	case "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}

// readHeaders reads the header row.
func (p *StreamingParser) readHeaders() error {
	row, err := p.reader.Read()
	if err == io.EOF {
		// Empty file: no header, no rows.
		p.headers = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading header row: %w", err)
	}

	p.line, _ = p.reader.FieldPos(0)
	p.headers = cleanHeaders(row)
	return nil
}

// cleanHeaders strips a byte order mark and names blank header cells.
// Other whitespace is left for the normalizer.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, utf8BOM)
		}

		// Blank header cells get a placeholder so their values are not
		// mistaken for a real field.
		if strings.TrimSpace(header) == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}

		cleaned[i] = header
	}

	return cleaned
}

// Next advances to the next non-blank row. Returns false when there are no
// more rows or a read error occurred (see Err).
func (p *StreamingParser) Next() bool {
	if p.err != nil || p.headers == nil {
		return false
	}

	for {
		row, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row after line %d: %w", p.line, err)
			return false
		}

		p.line, _ = p.reader.FieldPos(0)

		// Skip blank rows.
		if isRowEmpty(row) {
			continue
		}

		p.currentRow = make(types.RawRow, len(p.headers))
		for i, header := range p.headers {
			if i >= len(row) {
				break
			}
			p.currentRow[header] = row[i]
		}

		return true
	}
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Row returns the current row.
func (p *StreamingParser) Row() types.RawRow {
	return p.currentRow
}

// Headers returns the header names as read (BOM removed, otherwise raw).
func (p *StreamingParser) Headers() []string {
	return p.headers
}

// Line returns the 1-indexed line on which the current row starts.
func (p *StreamingParser) Line() int {
	return p.line
}

// Err returns any error that occurred during parsing.
func (p *StreamingParser) Err() error {
	return p.err
}

// Close closes the underlying file, if the parser opened one.
func (p *StreamingParser) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
