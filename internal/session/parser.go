package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser normalizes raw export rows into Session records using a validated
// positional schema.
type Parser struct {
	schema Schema
}

// NewParser creates a parser for the given schema. The schema is validated
// here, once, rather than on every row.
func NewParser(schema Schema) (*Parser, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid row schema: %w", err)
	}
	return &Parser{schema: schema}, nil
}

// Parse converts one raw row into a Session. The row's three list columns
// must all have exactly room-count entries; anything else is ErrMalformedRow.
func (p *Parser) Parse(row []string) (*Session, error) {
	s := p.schema

	if len(row) < s.minColumns() {
		return nil, fmt.Errorf("%w: %d columns, schema needs %d", ErrMalformedRow, len(row), s.minColumns())
	}

	roomCount, err := strconv.Atoi(strings.TrimSpace(row[s.RoomCount]))
	if err != nil {
		return nil, fmt.Errorf("%w: room count %q: %v", ErrMalformedRow, row[s.RoomCount], err)
	}

	aps := SplitList(row[s.AccessPoints])
	starts := SplitList(row[s.StartList])
	ends := SplitList(row[s.EndList])

	if len(aps) != roomCount || len(starts) != roomCount || len(ends) != roomCount {
		return nil, fmt.Errorf("%w: room count %d but lists have %d/%d/%d entries",
			ErrMalformedRow, roomCount, len(aps), len(starts), len(ends))
	}

	stays := make([]Stay, 0, roomCount)
	for n := 0; n < roomCount; n++ {
		start, err := strconv.ParseFloat(starts[n], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: start minute %q: %v", ErrMalformedRow, starts[n], err)
		}
		end, err := strconv.ParseFloat(ends[n], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: end minute %q: %v", ErrMalformedRow, ends[n], err)
		}
		stays = append(stays, Stay{
			AccessPoint: aps[n],
			StartMinute: start,
			EndMinute:   end,
		})
	}

	dateKey := row[s.Date]
	if len(dateKey) >= 10 {
		// Export date columns carry a full timestamp; the date portion is
		// the first 10 characters (YYYY-MM-DD).
		dateKey = dateKey[0:4] + dateKey[5:7] + dateKey[8:10]
	}

	return &Session{
		DeviceID: row[s.DeviceID],
		Building: row[s.Building],
		DateKey:  dateKey,
		Stays:    stays,
	}, nil
}

// SplitList splits a bracketed multi-value export field such as
// "['KNWL-2A', 'KNWL-3B']" into its trimmed tokens. Bracket and quote
// decoration is stripped per token.
func SplitList(field string) []string {
	trimmed := strings.Trim(field, "[]")
	if strings.TrimSpace(trimmed) == "" {
		return nil
	}

	parts := strings.Split(trimmed, ",")
	tokens := make([]string, len(parts))
	for i, part := range parts {
		tokens[i] = strings.Trim(part, " '\"")
	}
	return tokens
}
