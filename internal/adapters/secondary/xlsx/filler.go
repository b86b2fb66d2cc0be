// Package xlsx fills spreadsheet templates.
package xlsx

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	output "spec-registry-service/internal/core/ports/output"
)

const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Filler rewrites the text cells of a workbook. Numbers, booleans, dates and
// formulas are left as they are.
type Filler struct{}

func NewFiller() *Filler {
	return &Filler{}
}

func (f *Filler) ContentType() string { return contentType }

func (f *Filler) Extension() string { return ".xlsx" }

func (f *Filler) Fill(template []byte, replace func(text string) string) ([]byte, error) {
	book, err := excelize.OpenReader(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	for _, sheet := range book.GetSheetList() {
		if err := fillSheet(book, sheet, replace); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
	}

	buf, err := book.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func fillSheet(book *excelize.File, sheet string, replace func(string) string) error {
	rows, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return err
	}
	for r, row := range rows {
		for c, text := range row {
			if text == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			typ, err := book.GetCellType(sheet, cell)
			if err != nil {
				return err
			}
			if typ != excelize.CellTypeSharedString && typ != excelize.CellTypeInlineString {
				continue
			}
			out := replace(text)
			if out == text {
				continue
			}
			if err := book.SetCellStr(sheet, cell, out); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ output.TemplateFiller = (*Filler)(nil)
