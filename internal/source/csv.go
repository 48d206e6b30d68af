package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/crowdvisual/crowdvisual-platform/internal/session"
)

// CSVSessions streams parsed session records from a CSV export file. The
// header row is consumed at open time. Rows that fail to parse surface as
// session.ErrMalformedRow so callers can skip and count them.
type CSVSessions struct {
	file   *os.File
	reader *csv.Reader
	parser *session.Parser
}

// OpenSessionCSV opens a session export with the given row schema.
func OpenSessionCSV(path string, schema session.Schema) (*CSVSessions, error) {
	parser, err := session.NewParser(schema)
	if err != nil {
		return nil, err
	}

	file, reader, err := openCSV(path)
	if err != nil {
		return nil, err
	}

	return &CSVSessions{file: file, reader: reader, parser: parser}, nil
}

// Next returns the next session record, io.EOF at end of file.
func (c *CSVSessions) Next() (*session.Session, error) {
	row, err := readRow(c.reader)
	if err != nil {
		return nil, err
	}
	return c.parser.Parse(row)
}

// Close releases the underlying file.
func (c *CSVSessions) Close() error {
	return c.file.Close()
}

// CSVRows streams raw rows from a CSV export, header skipped. The
// trajectory reconstructor consumes these directly since its export has
// its own column layout.
type CSVRows struct {
	file   *os.File
	reader *csv.Reader
}

// OpenCSVRows opens an export for raw row streaming.
func OpenCSVRows(path string) (*CSVRows, error) {
	file, reader, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	return &CSVRows{file: file, reader: reader}, nil
}

// Next returns the next raw row, io.EOF at end of file.
func (c *CSVRows) Next() ([]string, error) {
	return readRow(c.reader)
}

// Close releases the underlying file.
func (c *CSVRows) Close() error {
	return c.file.Close()
}

// openCSV opens a file, configures a lenient CSV reader, and consumes the
// header row.
func openCSV(path string) (*os.File, *csv.Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open export %s: %w", path, err)
	}

	reader := csv.NewReader(file)
	// Export rows vary in width across pipeline versions; the schema's
	// minimum-column check guards the indices we actually read.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		file.Close()
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("export %s: %w", path, io.ErrUnexpectedEOF)
		}
		return nil, nil, fmt.Errorf("read export header %s: %w", path, err)
	}

	return file, reader, nil
}

// readRow reads one record, converting mid-file CSV syntax errors into
// malformed-row skips rather than aborting the whole scan.
func readRow(r *csv.Reader) ([]string, error) {
	row, err := r.Read()
	if err == nil {
		return row, nil
	}
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}

	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return nil, fmt.Errorf("%w: %v", session.ErrMalformedRow, err)
	}
	return nil, err
}
