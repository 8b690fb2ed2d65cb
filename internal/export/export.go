// Package export renders an inventory in the formats users can save it as.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"filecensus/internal/inventory"
	"filecensus/internal/storage"
	"filecensus/internal/storage/csvfile"
)

// ErrUnknownKind is returned for an unsupported export format.
var ErrUnknownKind = errors.New("unknown export format")

// Kind is an export format.
type Kind string

const (
	KindText Kind = "text"
	KindCSV  Kind = "csv"
	KindJSON Kind = "json"
	KindHTML  Kind = "html"
	KindExcel Kind = "excel"
)

// Kinds lists the supported formats.
var Kinds = []Kind{KindText, KindCSV, KindJSON, KindHTML, KindExcel}

var extensions = map[Kind]string{
	KindText:  ".txt",
	KindCSV:   ".csv",
	KindJSON:  ".json",
	KindHTML:  ".html",
	KindExcel: ".xlsx",
}

var aliases = map[string]Kind{
	"txt":  KindText,
	"xlsx": KindExcel,
}

// ParseKind validates a format name.
func ParseKind(s string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s)))
	if alias, ok := aliases[string(kind)]; ok {
		kind = alias
	}
	if _, ok := extensions[kind]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
	}
	return kind, nil
}

// Extension returns the file extension for kind, with the leading dot.
func (k Kind) Extension() string {
	return extensions[k]
}

// FileName builds "Export <location>_<date><ext>", with path separators in
// the location replaced by underscores. date is the day of the export.
func FileName(location, date string, kind Kind) string {
	replacer := strings.NewReplacer(string(filepath.Separator), "_", "/", "_")
	return fmt.Sprintf("Export %s_%s%s", replacer.Replace(location), date, kind.Extension())
}

// Write renders inv in the given format.
func Write(w io.Writer, kind Kind, inv *inventory.Inventory) error {
	switch kind {
	case KindText:
		return writeText(w, inv)
	case KindCSV:
		return csvfile.WriteRecords(w, storage.FromInventory(inv).Records)
	case KindJSON:
		return writeJSON(w, inv)
	case KindHTML:
		return writeHTML(w, inv)
	case KindExcel:
		return writeExcel(w, inv)
	default:
		return fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
}

const sizeColumnGap = "        "

func writeText(w io.Writer, inv *inventory.Inventory) error {
	meta := inv.Metadata()
	if _, err := fmt.Fprintf(w, "%s\nTotal files: %d\nTotal size: %s\n\n", meta.ScanDate, meta.TotalFiles, meta.TotalSize()); err != nil {
		return err
	}
	for record := range inv.All() {
		if _, err := fmt.Fprintf(w, "%s%s%s\n", record.HumanSize, sizeColumnGap, record.Path); err != nil {
			return err
		}
	}
	return nil
}

type jsonDocument struct {
	Data [][3]any `json:"data"`
}

func writeJSON(w io.Writer, inv *inventory.Inventory) error {
	doc := jsonDocument{Data: make([][3]any, 0, inv.Len())}
	for record := range inv.All() {
		doc.Data = append(doc.Data, [3]any{record.Path, record.Size, record.HumanSize})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	return encoder.Encode(doc)
}

var htmlTemplate = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Meta.RootLocation}}</title>
</head>
<body>
<h1>{{.Meta.RootLocation}}</h1>
<p>{{.Meta.ScanDate}} &middot; {{.Meta.TotalFiles}} files &middot; {{.Meta.TotalSize}}</p>
<table>
<thead><tr><th>Path</th><th>Bytes</th><th>Size</th></tr></thead>
<tbody>
{{- range .Records}}
<tr><td>{{.Path}}</td><td>{{.Size}}</td><td>{{.HumanSize}}</td></tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

func writeHTML(w io.Writer, inv *inventory.Inventory) error {
	return htmlTemplate.Execute(w, struct {
		Meta    inventory.Metadata
		Records []inventory.FileRecord
	}{
		Meta:    inv.Metadata(),
		Records: inv.Records(),
	})
}

// SheetName is the worksheet holding the records of an Excel export.
const SheetName = "Files"

func writeExcel(w io.Writer, inv *inventory.Inventory) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open sheet: %w", err)
	}
	if err := sw.SetColWidth(1, 1, 80); err != nil {
		return err
	}
	if err := sw.SetRow("A1", []any{"Path", "Bytes", "Size"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	for record := range inv.All() {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []any{record.Path, record.Size, record.HumanSize}); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
