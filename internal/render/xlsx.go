package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/interlis-enums/internal/types"
	"github.com/xuri/excelize/v2"
)

const (
	// maxSheetNameLength is the worksheet name limit enforced by Excel.
	maxSheetNameLength = 31

	// emptySheetName names the only sheet of a workbook without types.
	emptySheetName = "enums"

	// defaultSheetName is the sheet excelize creates with a new file.
	defaultSheetName = "Sheet1"
)

var sheetHeader = []interface{}{"id", "enum", "enumtxt"}

// xlsxRenderer writes one worksheet per enumeration type. Sheet names are
// derived from TagName and made valid and unique within the workbook.
type xlsxRenderer struct {
	options Options
}

func (r *xlsxRenderer) Format() Format { return FormatXLSX }

func (r *xlsxRenderer) Render(w io.Writer, catalog *types.Catalog) error {
	f := excelize.NewFile()
	defer f.Close()

	if catalog.IsEmpty() {
		if err := f.SetSheetName(defaultSheetName, emptySheetName); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
		if err := f.SetSheetRow(emptySheetName, "A1", &sheetHeader); err != nil {
			return fmt.Errorf("failed to write sheet header: %w", err)
		}
	} else {
		names := SheetNames(catalog)
		for i, t := range catalog.Types {
			if err := writeSheet(f, i, names[i], t); err != nil {
				return err
			}
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, index int, name string, t types.EnumType) error {
	if index == 0 {
		if err := f.SetSheetName(defaultSheetName, name); err != nil {
			return fmt.Errorf("failed to name sheet %q: %w", name, err)
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", name, err)
	}

	if err := f.SetSheetRow(name, "A1", &sheetHeader); err != nil {
		return fmt.Errorf("failed to write header of sheet %q: %w", name, err)
	}

	for row, v := range t.Values {
		cell, err := excelize.CoordinatesToCellName(1, row+2)
		if err != nil {
			return err
		}
		values := []interface{}{v.ID, v.Code, v.Label}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of sheet %q: %w", row+2, name, err)
		}
	}

	if err := f.SetColWidth(name, "B", "C", 32); err != nil {
		return fmt.Errorf("failed to size columns of sheet %q: %w", name, err)
	}

	return nil
}

// SheetNames returns one valid, unique worksheet name per catalog type.
func SheetNames(catalog *types.Catalog) []string {
	names := make([]string, 0, len(catalog.Types))
	used := make(map[string]bool, len(catalog.Types))

	for _, t := range catalog.Types {
		base := sanitizeSheetName(t.TagName())
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			suffix := "~" + strconv.Itoa(n)
			name = truncateRunes(base, maxSheetNameLength-len(suffix)) + suffix
		}
		used[strings.ToLower(name)] = true
		names = append(names, name)
	}

	return names
}

// sanitizeSheetName replaces characters Excel rejects and enforces the
// length limit.
func sanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "enum"
	}
	return truncateRunes(name, maxSheetNameLength)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
