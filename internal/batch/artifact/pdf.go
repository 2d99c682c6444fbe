package artifact

import (
	"os"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// RenderPDF writes the secondary artifact: the session's rows as a table.
// Column widths split the 12-unit grid evenly across the fields.
func (s *Store) RenderPDF(handle string, fields []string, rows [][]string) error {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	colWidth := 12 / len(fields)
	if colWidth < 1 {
		colWidth = 1
	}

	header := make([]core.Col, 0, len(fields))
	for _, f := range fields {
		header = append(header, text.NewCol(colWidth, f, props.Text{
			Size:  9,
			Style: fontstyle.Bold,
		}))
	}
	m.AddRow(8, header...)

	for _, row := range rows {
		cols := make([]core.Col, 0, len(fields))
		for i := range fields {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			cols = append(cols, text.NewCol(colWidth, value, props.Text{Size: 8}))
		}
		m.AddRow(6, cols...)
	}

	doc, err := m.Generate()
	if err != nil {
		return err
	}
	return os.WriteFile(s.PDFPath(handle), doc.GetBytes(), 0o644)
}
