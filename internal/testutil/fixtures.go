package testutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Workbook builds an xlsx file with one text cell per entry of cells,
// keyed "Sheet!A1" or plain "A1" for the first sheet.
func Workbook(t *testing.T, cells map[string]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for ref, text := range cells {
		sheet, cell := "Sheet1", ref
		for i := len(ref) - 1; i >= 0; i-- {
			if ref[i] == '!' {
				sheet, cell = ref[:i], ref[i+1:]
				break
			}
		}
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		require.NoError(t, f.SetCellStr(sheet, cell, text))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// CellText reads one cell back from an xlsx file.
func CellText(t *testing.T, book []byte, sheet, cell string) string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(book))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(sheet, cell)
	require.NoError(t, err)
	return v
}
