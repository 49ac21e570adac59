package render

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily = "ShoppingList"
	titleText  = "Shopping list"
)

// Line 购物清单中的一行
type Line struct {
	Name            string
	MeasurementUnit string
	Amount          int64
}

// String 格式: "name - amount unit"
func (l Line) String() string {
	return fmt.Sprintf("%s - %d %s", l.Name, l.Amount, l.MeasurementUnit)
}

// PDFRenderer 生成购物清单 PDF
// fontPath 为 UTF-8 TTF 字体; 为空时使用内置 Helvetica, 只能显示 Latin-1 字符
type PDFRenderer struct {
	fontPath string
	compress bool
}

func NewPDFRenderer(fontPath string) *PDFRenderer {
	return &PDFRenderer{fontPath: fontPath, compress: true}
}

// ShoppingList 将清单写入 w
func (r *PDFRenderer) ShoppingList(w io.Writer, lines []Line) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle(titleText, true)

	translate := func(s string) string { return s }
	family := "Helvetica"
	if r.fontPath != "" {
		pdf.AddUTF8Font(fontFamily, "", r.fontPath)
		family = fontFamily
	} else {
		translate = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.AddPage()
	pdf.SetFont(family, "", 20)
	pdf.CellFormat(0, 12, translate(titleText), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(family, "", 14)
	if len(lines) == 0 {
		pdf.CellFormat(0, 8, translate("Empty"), "", 1, "L", false, 0, "")
	}
	for i, line := range lines {
		pdf.CellFormat(0, 8, translate(fmt.Sprintf("%d.  %s", i+1, line)), "", 1, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("生成 PDF 失败: %w", err)
	}
	return pdf.Output(w)
}
