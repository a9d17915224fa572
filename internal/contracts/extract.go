package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"

	"controladoria/internal"
	"controladoria/internal/dates"
	"controladoria/internal/money"
	"controladoria/internal/util"
)

func ParseSource(value string) (internal.ImportSource, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json":
		return internal.SourceJSON, nil
	case "xlsx":
		return internal.SourceXLSX, nil
	case "html", "htm":
		return internal.SourceHTML, nil
	default:
		return "", fmt.Errorf("unsupported input type: %s", value)
	}
}

func SourceFromPath(path string) (internal.ImportSource, error) {
	return ParseSource(strings.TrimPrefix(filepath.Ext(path), "."))
}

func ExtractFile(path string, source internal.ImportSource) ([]internal.RawRecord, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ExtractRecords(source, blob)
}

func ExtractRecords(source internal.ImportSource, content []byte) ([]internal.RawRecord, error) {
	var rows []map[string]any
	var err error
	switch source {
	case internal.SourceJSON:
		rows, err = parseJSON(content)
	case internal.SourceXLSX:
		rows, err = parseXLSX(content)
	case internal.SourceHTML:
		rows, err = parseHTMLTable(content)
	default:
		return nil, fmt.Errorf("unsupported input type: %s", source)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", source, err)
	}

	out := make([]internal.RawRecord, 0, len(rows))
	for i, fields := range rows {
		blob, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i+1, err)
		}
		rec := internal.RawRecord{
			LineNo:  i + 1,
			Source:  source,
			Fields:  fields,
			RawJSON: string(blob),
		}
		if id := FromMap(fields).ID(); id != "" {
			rec.ExternalID = util.StringPtr(id)
		}
		out = append(out, rec)
	}
	return out, nil
}

// parseJSON accepts a bare array of rows or an API envelope {"data": [...]}.
// Numbers stay json.Number so currency values are never rounded on the way in.
func parseJSON(content []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	var items []any
	switch t := doc.(type) {
	case []any:
		items = t
	case map[string]any:
		data, ok := t["data"].([]any)
		if !ok {
			return nil, fmt.Errorf("object without a data array")
		}
		items = data
	default:
		return nil, fmt.Errorf("expected an array of rows, got %T", doc)
	}

	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("row %d is %T, not an object", i+1, item)
		}
		out = append(out, row)
	}
	return out, nil
}

func parseXLSX(content []byte) ([]map[string]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil || len(rows) < 2 {
			continue
		}
		headers := headerKeys(rows[0])

		out := []map[string]any{}
		for r, row := range rows[1:] {
			fields := map[string]any{}
			for c, raw := range row {
				if c >= len(headers) || headers[c] == "" || strings.TrimSpace(raw) == "" {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				fields[headers[c]] = xlsxCellValue(f, sheet, cell, headers[c], raw)
			}
			if len(fields) > 0 {
				out = append(out, fields)
			}
		}
		return out, nil
	}
	return nil, nil
}

func xlsxCellValue(f *excelize.File, sheet, cell, key, raw string) any {
	typ, err := f.GetCellType(sheet, cell)
	if err == nil && (typ == excelize.CellTypeUnset || typ == excelize.CellTypeNumber) {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			if isDateKey(key) {
				if t, err := excelize.ExcelDateToTime(n, false); err == nil {
					return t.Format(dates.ISOLayout)
				}
			}
			return json.Number(raw)
		}
	}
	return cellValue(raw)
}

func isDateKey(key string) bool {
	return strings.HasSuffix(key, "_date") || key == "created_at" || key == "updated_at"
}

func parseHTMLTable(content []byte) ([]map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return true
		}
		found = true

		var header []string
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			header = append(header, cell.Text())
		})
		headers := headerKeys(header)

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			fields := map[string]any{}
			row.Find("th,td").Each(func(c int, cell *goquery.Selection) {
				text := util.NormalizeSpaces(cell.Text())
				if c >= len(headers) || headers[c] == "" || text == "" {
					return
				}
				fields[headers[c]] = cellValue(text)
			})
			if len(fields) > 0 {
				out = append(out, fields)
			}
		})
		return false
	})
	if !found {
		return nil, fmt.Errorf("no table with a header and data rows")
	}
	return out, nil
}

func headerKeys(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = util.NormalizeKey(c)
	}
	return out
}

// cellValue turns a text cell into a list when it holds a JSON array, the way
// list columns are rendered by database exports; anything else stays text.
func cellValue(text string) any {
	text = strings.TrimSpace(text)
	if list := money.EnsureArray(text); list != nil {
		return list
	}
	return text
}
