package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	fontFamily = "Times New Roman"

	sizeText  = 26 // 13pt
	sizeTitle = 32 // 16pt
	sizeSmall = 22 // 11pt

	lineSpacing = 360
	indentPlus  = 720

	pageWidth    = 11906 // A4, twips
	pageHeight   = 16838
	pageMargin   = 1440
	contentWidth = pageWidth - 2*pageMargin

	DefaultImageWidth = 500 // px
)

const coverLine = "Sinh viên: .......................................   MSSV: ...................."

// Renderer 将块序列写成 .docx
type Renderer struct {
	logger     *zap.Logger
	imageWidth int
}

func NewRenderer(logger *zap.Logger, imageWidth int) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if imageWidth <= 0 {
		imageWidth = DefaultImageWidth
	}
	return &Renderer{logger: logger, imageWidth: imageWidth}
}

// docxWriter 单次渲染的状态
type docxWriter struct {
	r      *Renderer
	body   []interface{}
	media  []mediaPart
	images int
}

type mediaPart struct {
	relID string
	name  string
	data  []byte
}

// Render 渲染文档；无法解码的图片记录日志后跳过
func (r *Renderer) Render(blocks []Block) ([]byte, error) {
	w := &docxWriter{r: r}
	w.cover()
	for _, b := range blocks {
		w.block(b)
	}
	return w.pack()
}

func (w *docxWriter) cover() {
	w.para(&wPPr{Spacing: &wSpacing{After: 200}}, textRun(coverLine, runStyle{size: sizeSmall}))
	w.body = append(w.body, coverTable())
	w.para(&wPPr{Spacing: &wSpacing{After: 400}})
}

func (w *docxWriter) block(b Block) {
	switch b.Kind {
	case KindTitle:
		w.para(&wPPr{Spacing: &wSpacing{After: 300, Line: lineSpacing}, Jc: &wVal{Val: "center"}},
			textRun(b.Text, runStyle{bold: true, size: sizeTitle}))
	case KindSectionHeading:
		w.para(&wPPr{Spacing: &wSpacing{Before: 240, After: 120, Line: lineSpacing}},
			textRun(b.Text, runStyle{bold: true}))
	case KindSubheading, KindNumberedHeading:
		w.para(&wPPr{Spacing: &wSpacing{Before: 120, After: 60, Line: lineSpacing}},
			textRun(b.Text, runStyle{bold: true}))
	case KindField:
		runs := []wRun{textRun("– ", runStyle{})}
		if b.Label != "" {
			runs = append(runs, textRun(b.Label+": ", runStyle{}))
		}
		runs = append(runs, textRun(b.Text, runStyle{}))
		w.para(&wPPr{Spacing: &wSpacing{After: 60, Line: lineSpacing}}, runs...)
	case KindDashText:
		w.bullets(b.Lines, "– ", 0)
	case KindPlusText:
		w.bullets(b.Lines, "+ ", indentPlus)
	case KindVitals:
		if b.Vitals != nil {
			w.vitals(b.Vitals)
		}
	case KindStrong:
		w.para(&wPPr{Spacing: &wSpacing{Line: lineSpacing}}, textRun(b.Text, runStyle{bold: true}))
	case KindTable:
		if len(b.Rows) > 0 {
			w.body = append(w.body, dataTable(b.Rows))
		}
	case KindImage:
		w.image(b.Image)
	}
}

func (w *docxWriter) para(ppr *wPPr, runs ...wRun) {
	w.body = append(w.body, wPara{PPr: ppr, Runs: runs})
}

func (w *docxWriter) bullets(lines []string, marker string, indent int) {
	for _, l := range lines {
		w.para(&wPPr{Spacing: &wSpacing{Line: lineSpacing}, Ind: &wInd{Left: indent}},
			textRun(marker+l, runStyle{}))
	}
}

func (w *docxWriter) vitals(v *VitalsBlock) {
	stops := &wTabs{Tabs: []wTab{{Val: "left", Pos: 2500}, {Val: "left", Pos: 5000}, {Val: "left", Pos: 7500}}}
	ppr := func() *wPPr {
		return &wPPr{Tabs: stops, Spacing: &wSpacing{After: 60, Line: lineSpacing}, Ind: &wInd{Left: 0}}
	}
	italic := runStyle{italic: true}
	plain := runStyle{}

	w.para(ppr(),
		textRun("Mạch:", italic), textRun("\t"+v.Pulse, plain), textRun(" l/p", plain),
		textRun("\tSpO2:", italic), textRun("\t"+v.SpO2, plain), textRun(" %", plain))
	w.para(ppr(),
		textRun("Huyết áp:", italic), textRun("\t"+v.BloodPressure, plain), textRun(" mmHg", plain),
		textRun("\tNhịp thở:", italic), textRun("\t"+v.Resp, plain), textRun(" l/p", plain))
	w.para(ppr(),
		textRun("Nhiệt độ:", italic), textRun("\t"+v.Temp, plain), textRun(" °C", plain))

	if !v.ShowBody {
		return
	}
	w.para(&wPPr{Tabs: &wTabs{Tabs: []wTab{{Val: "left", Pos: 4000}}}, Spacing: &wSpacing{After: 60, Line: lineSpacing}},
		textRun("– Chiều cao: "+v.Height+" cm", plain),
		textRun("\tCân nặng: "+v.Weight+" kg", plain))
	w.para(&wPPr{Spacing: &wSpacing{After: 60, Line: lineSpacing}},
		textRun(fmt.Sprintf("→ BMI: %s kg/m² (%s)", v.BMI, v.Classification), plain))
}

func (w *docxWriter) image(dataURL string) {
	img, err := decodeDataURL(dataURL)
	if err != nil {
		w.r.logger.Warn("skip paraclinical image", zap.Error(err))
		return
	}
	w.images++
	n := w.images
	name := fmt.Sprintf("image%d.%s", n, img.ext)
	relID := fmt.Sprintf("rIdImg%d", n)
	w.media = append(w.media, mediaPart{relID: relID, name: name, data: img.data})

	cx, cy := img.extent(w.r.imageWidth)
	drawing := wDrawing{Inner: fmt.Sprintf(drawingXML, cx, cy, n, name, relID)}
	w.para(&wPPr{Jc: &wVal{Val: "center"}}, wRun{Content: []interface{}{drawing}})
}

type runStyle struct {
	bold   bool
	italic bool
	size   int
}

// textRun 生成一个 run，文本中的 \t 转为制表符元素
func textRun(text string, st runStyle) wRun {
	size := st.size
	if size == 0 {
		size = sizeText
	}
	rpr := &wRPr{
		Fonts: wFonts{ASCII: fontFamily, HAnsi: fontFamily, CS: fontFamily},
		Sz:    wVal{Val: fmt.Sprint(size)},
		SzCs:  wVal{Val: fmt.Sprint(size)},
	}
	if st.bold {
		rpr.B = &wEmpty{}
	}
	if st.italic {
		rpr.I = &wEmpty{}
	}
	var content []interface{}
	for i, part := range strings.Split(text, "\t") {
		if i > 0 {
			content = append(content, wTabChar{})
		}
		if part != "" {
			content = append(content, wText{Space: "preserve", Text: part})
		}
	}
	return wRun{RPr: rpr, Content: content}
}

var singleBorder = wBorder{Val: "single", Sz: 4, Space: 0, Color: "000000"}

func borders() wBorders {
	return wBorders{
		Top: singleBorder, Left: singleBorder, Bottom: singleBorder, Right: singleBorder,
		InsideH: singleBorder, InsideV: singleBorder,
	}
}

func centeredCell(width int, text string) wCell {
	return wCell{
		TcPr: wTcPr{W: &wWidth{W: width, Type: "dxa"}, VAlign: &wVal{Val: "center"}},
		Paras: []wPara{{
			PPr:  &wPPr{Spacing: &wSpacing{After: 120}, Jc: &wVal{Val: "center"}},
			Runs: []wRun{textRun(text, runStyle{bold: true})},
		}},
	}
}

// coverTable 封面评分表：表头 + 1500 twips 高的空白行
func coverTable() wTable {
	side := contentWidth * 15 / 100
	mid := contentWidth - 2*side
	empty := func(width int) wCell {
		return wCell{TcPr: wTcPr{W: &wWidth{W: width, Type: "dxa"}}, Paras: []wPara{{}}}
	}
	return wTable{
		TblPr: wTblPr{W: wWidth{W: 5000, Type: "pct"}, Borders: borders()},
		Grid:  wGrid{Cols: []wGridCol{{W: side}, {W: mid}, {W: side}}},
		Rows: []wRow{
			{Cells: []wCell{centeredCell(side, "Đánh giá"), centeredCell(mid, "Nhận xét"), centeredCell(side, "Chữ kí")}},
			{
				TrPr:  &wTrPr{Height: wHeight{Val: 1500, Rule: "atLeast"}},
				Cells: []wCell{empty(side), empty(mid), empty(side)},
			},
		},
	}
}

// dataTable 化验表格，90% 宽度，首行加粗灰底；短行补空单元格
func dataTable(rows [][]string) wTable {
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		cols = 1
	}
	width := contentWidth * 90 / 100
	colW := width / cols
	grid := make([]wGridCol, cols)
	for i := range grid {
		grid[i] = wGridCol{W: colW}
	}

	out := make([]wRow, 0, len(rows))
	for ri, r := range rows {
		cells := make([]wCell, cols)
		for ci := 0; ci < cols; ci++ {
			text := ""
			if ci < len(r) {
				text = r[ci]
			}
			tc := wTcPr{W: &wWidth{W: colW, Type: "dxa"}, VAlign: &wVal{Val: "center"}}
			if ri == 0 {
				tc.Shd = &wShd{Val: "clear", Color: "auto", Fill: "E0E0E0"}
			}
			cells[ci] = wCell{
				TcPr:  tc,
				Paras: []wPara{{Runs: []wRun{textRun(text, runStyle{bold: ri == 0, size: sizeSmall})}}},
			}
		}
		out = append(out, wRow{Cells: cells})
	}
	return wTable{
		TblPr: wTblPr{W: wWidth{W: 4500, Type: "pct"}, Jc: &wVal{Val: "center"}, Borders: borders()},
		Grid:  wGrid{Cols: grid},
		Rows:  out,
	}
}

func (w *docxWriter) pack() ([]byte, error) {
	doc := wDocument{
		W: nsW, R: nsR, WP: nsWP, A: nsA, Pic: nsPic,
		Body: wBody{
			Content: w.body,
			SectPr: wSectPr{
				PgSz: wPgSz{W: pageWidth, H: pageHeight},
				PgMar: wPgMar{
					Top: pageMargin, Right: pageMargin, Bottom: pageMargin, Left: pageMargin,
					Header: 708, Footer: 708,
				},
			},
		},
	}

	docRels := relationships{Xmlns: nsRelationships, Items: []relationship{
		{ID: "rIdStyles", Type: relTypeStyles, Target: "styles.xml"},
	}}
	for _, m := range w.media {
		docRels.Items = append(docRels.Items, relationship{ID: m.relID, Type: relTypeImage, Target: "media/" + m.name})
	}
	rootRels := relationships{Xmlns: nsRelationships, Items: []relationship{
		{ID: "rId1", Type: relTypeDocument, Target: "word/document.xml"},
	}}
	types := contentTypes{
		Xmlns: nsContentTypes,
		Defaults: []ctDefault{
			{Extension: "rels", ContentType: "application/vnd.openxmlformats-package.relationships+xml"},
			{Extension: "xml", ContentType: "application/xml"},
			{Extension: "png", ContentType: "image/png"},
			{Extension: "jpeg", ContentType: "image/jpeg"},
			{Extension: "gif", ContentType: "image/gif"},
		},
		Overrides: []ctOverride{
			{PartName: "/word/document.xml", ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"},
			{PartName: "/word/styles.xml", ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"},
		},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct {
		name string
		v    interface{}
	}{
		{"[Content_Types].xml", types},
		{"_rels/.rels", rootRels},
		{"word/document.xml", doc},
		{"word/_rels/document.xml.rels", docRels},
	}
	for _, p := range parts {
		if err := writeXMLPart(zw, p.name, p.v); err != nil {
			return nil, err
		}
	}
	if err := writeRawPart(zw, "word/styles.xml", []byte(stylesXML)); err != nil {
		return nil, err
	}
	for _, m := range w.media {
		if err := writeRawPart(zw, "word/media/"+m.name, m.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx archive: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXMLPart(zw *zip.Writer, name string, v interface{}) error {
	out, err := xml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return writeRawPart(zw, name, append([]byte(xml.Header), out...))
}

func writeRawPart(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
