package source

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"callsight/internal/logger"
	"callsight/internal/transform"
)

// LoadFile reads a local export into raw records, picking the parser from
// the file extension: .xlsx via excelize, anything else as tab-delimited.
func LoadFile(path string) ([]transform.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return LoadTSV(path)
	}
}

// LoadTSV parses a header-first tab-delimited export. Rows with no call key
// are skipped quietly; partial rows map only the columns they have.
func LoadTSV(path string) ([]transform.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, fmt.Errorf("export %s has no header row", path)
	}
	cols := splitHeader(scanner.Text())

	var out []transform.RawRecord
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		rec := transform.RawRecord{}
		for i, v := range fields {
			if i < len(cols) {
				rec[cols[i]] = v
			}
		}
		if strings.TrimSpace(rec[transform.ColCallKey]) == "" {
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read export rows: %w", err)
	}
	return out, nil
}

// LoadXLSX parses the first sheet of a spreadsheet export.
func LoadXLSX(path string) ([]transform.RawRecord, error) {
	log := logger.NewComponent("export-xlsx").WithField("path", path)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	cols := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		cols[i] = transform.NormalizeHeader(h)
	}

	var out []transform.RawRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rec := transform.RawRecord{}
		for j, v := range row {
			if j < len(cols) {
				rec[cols[j]] = v
			}
		}
		if strings.TrimSpace(rec[transform.ColCallKey]) == "" {
			continue
		}
		out = append(out, rec)
	}
	log.WithField("rows", len(out)).Info("spreadsheet export loaded")
	return out, nil
}

func splitHeader(line string) []string {
	parts := strings.Split(strings.TrimPrefix(line, "\ufeff"), "\t")
	cols := make([]string, len(parts))
	for i, h := range parts {
		cols[i] = transform.NormalizeHeader(h)
	}
	return cols
}
