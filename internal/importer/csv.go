package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

type column int

const (
	colDate column = iota
	colStart
	colEnd
	colBreak
	colLocation
	colNote
	colProject
)

var headerNames = map[string]column{
	"date":          colDate,
	"datum":         colDate,
	"start":         colStart,
	"from":          colStart,
	"end":           colEnd,
	"to":            colEnd,
	"break":         colBreak,
	"break_minutes": colBreak,
	"pause":         colBreak,
	"location":      colLocation,
	"note":          colNote,
	"notes":         colNote,
	"project":       colProject,
}

var defaultOrder = []column{colDate, colStart, colEnd, colBreak, colLocation, colNote, colProject}

// ReadCSV reads raw rows from a comma or semicolon separated file. A header
// row, if present, decides the column order; otherwise the columns are date,
// start, end, break, location, note, project. Cell values are not
// interpreted here.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []RawRow
	order := defaultOrder
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse import file: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if first {
			first = false
			if cols, ok := parseHeader(record); ok {
				order = cols
				continue
			}
		}
		if blank(record) {
			continue
		}
		rows = append(rows, toRaw(line, record, order))
	}
	return rows, nil
}

func sniffDelimiter(data []byte) rune {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.Count(firstLine, []byte{';'}) > bytes.Count(firstLine, []byte{','}) {
		return ';'
	}
	return ','
}

func parseHeader(record []string) ([]column, bool) {
	cols := make([]column, len(record))
	matched := 0
	for i, name := range record {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		c, ok := headerNames[key]
		if !ok {
			cols[i] = -1
			continue
		}
		cols[i] = c
		matched++
	}
	// two recognised names make a header row
	return cols, matched >= 2
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func toRaw(line int, record []string, order []column) RawRow {
	raw := RawRow{Line: line}
	for i, cell := range record {
		if i >= len(order) {
			break
		}
		cell = strings.TrimSpace(cell)
		switch order[i] {
		case colDate:
			raw.Date = cell
		case colStart:
			raw.Start = cell
		case colEnd:
			raw.End = cell
		case colBreak:
			raw.BreakMinutes = cell
		case colLocation:
			raw.Location = cell
		case colNote:
			raw.Note = cell
		case colProject:
			raw.Project = cell
		}
	}
	return raw
}
