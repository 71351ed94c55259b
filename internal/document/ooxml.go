package document

import "encoding/xml"

// WordprocessingML 元素。标签名直接带 "w:" 前缀，命名空间在根元素上声明。

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"

	relTypeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relTypeStyles   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relTypeImage    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

type wDocument struct {
	XMLName xml.Name `xml:"w:document"`
	W       string   `xml:"xmlns:w,attr"`
	R       string   `xml:"xmlns:r,attr"`
	WP      string   `xml:"xmlns:wp,attr"`
	A       string   `xml:"xmlns:a,attr"`
	Pic     string   `xml:"xmlns:pic,attr"`
	Body    wBody    `xml:"w:body"`
}

// wBody 段落与表格按出现顺序混排，元素名取自各自的 XMLName
type wBody struct {
	Content []interface{}
	SectPr  wSectPr `xml:"w:sectPr"`
}

type wVal struct {
	Val string `xml:"w:val,attr"`
}

type wEmpty struct{}

type wPara struct {
	XMLName xml.Name `xml:"w:p"`
	PPr     *wPPr    `xml:"w:pPr,omitempty"`
	Runs    []wRun   `xml:"w:r"`
}

type wPPr struct {
	Tabs    *wTabs    `xml:"w:tabs,omitempty"`
	Spacing *wSpacing `xml:"w:spacing,omitempty"`
	Ind     *wInd     `xml:"w:ind,omitempty"`
	Jc      *wVal     `xml:"w:jc,omitempty"`
}

type wTabs struct {
	Tabs []wTab `xml:"w:tab"`
}

type wTab struct {
	Val string `xml:"w:val,attr"`
	Pos int    `xml:"w:pos,attr"`
}

type wSpacing struct {
	Before   int    `xml:"w:before,attr,omitempty"`
	After    int    `xml:"w:after,attr,omitempty"`
	Line     int    `xml:"w:line,attr,omitempty"`
	LineRule string `xml:"w:lineRule,attr,omitempty"`
}

type wInd struct {
	Left int `xml:"w:left,attr"`
}

type wRun struct {
	XMLName xml.Name `xml:"w:r"`
	RPr     *wRPr    `xml:"w:rPr,omitempty"`
	Content []interface{}
}

type wRPr struct {
	Fonts wFonts  `xml:"w:rFonts"`
	B     *wEmpty `xml:"w:b,omitempty"`
	I     *wEmpty `xml:"w:i,omitempty"`
	Sz    wVal    `xml:"w:sz"`
	SzCs  wVal    `xml:"w:szCs"`
}

type wFonts struct {
	ASCII string `xml:"w:ascii,attr"`
	HAnsi string `xml:"w:hAnsi,attr"`
	CS    string `xml:"w:cs,attr"`
}

type wText struct {
	XMLName xml.Name `xml:"w:t"`
	Space   string   `xml:"xml:space,attr"`
	Text    string   `xml:",chardata"`
}

type wTabChar struct {
	XMLName xml.Name `xml:"w:tab"`
}

// wDrawing 内联图片，内部结构由 drawingXML 生成
type wDrawing struct {
	XMLName xml.Name `xml:"w:drawing"`
	Inner   string   `xml:",innerxml"`
}

type wTable struct {
	XMLName xml.Name `xml:"w:tbl"`
	TblPr   wTblPr   `xml:"w:tblPr"`
	Grid    wGrid    `xml:"w:tblGrid"`
	Rows    []wRow   `xml:"w:tr"`
}

type wTblPr struct {
	W       wWidth   `xml:"w:tblW"`
	Jc      *wVal    `xml:"w:jc,omitempty"`
	Borders wBorders `xml:"w:tblBorders"`
}

type wWidth struct {
	W    int    `xml:"w:w,attr"`
	Type string `xml:"w:type,attr"`
}

type wBorder struct {
	Val   string `xml:"w:val,attr"`
	Sz    int    `xml:"w:sz,attr"`
	Space int    `xml:"w:space,attr"`
	Color string `xml:"w:color,attr"`
}

type wBorders struct {
	Top     wBorder `xml:"w:top"`
	Left    wBorder `xml:"w:left"`
	Bottom  wBorder `xml:"w:bottom"`
	Right   wBorder `xml:"w:right"`
	InsideH wBorder `xml:"w:insideH"`
	InsideV wBorder `xml:"w:insideV"`
}

type wGrid struct {
	Cols []wGridCol `xml:"w:gridCol"`
}

type wGridCol struct {
	W int `xml:"w:w,attr"`
}

type wRow struct {
	TrPr  *wTrPr  `xml:"w:trPr,omitempty"`
	Cells []wCell `xml:"w:tc"`
}

type wTrPr struct {
	Height wHeight `xml:"w:trHeight"`
}

type wHeight struct {
	Val  int    `xml:"w:val,attr"`
	Rule string `xml:"w:hRule,attr"`
}

type wCell struct {
	TcPr  wTcPr   `xml:"w:tcPr"`
	Paras []wPara `xml:"w:p"`
}

type wTcPr struct {
	W      *wWidth `xml:"w:tcW,omitempty"`
	Shd    *wShd   `xml:"w:shd,omitempty"`
	VAlign *wVal   `xml:"w:vAlign,omitempty"`
}

type wShd struct {
	Val   string `xml:"w:val,attr"`
	Color string `xml:"w:color,attr"`
	Fill  string `xml:"w:fill,attr"`
}

type wSectPr struct {
	PgSz  wPgSz  `xml:"w:pgSz"`
	PgMar wPgMar `xml:"w:pgMar"`
}

type wPgSz struct {
	W int `xml:"w:w,attr"`
	H int `xml:"w:h,attr"`
}

type wPgMar struct {
	Top    int `xml:"w:top,attr"`
	Right  int `xml:"w:right,attr"`
	Bottom int `xml:"w:bottom,attr"`
	Left   int `xml:"w:left,attr"`
	Header int `xml:"w:header,attr"`
	Footer int `xml:"w:footer,attr"`
	Gutter int `xml:"w:gutter,attr"`
}

// 包内关系与内容类型

type relationships struct {
	XMLName xml.Name       `xml:"Relationships"`
	Xmlns   string         `xml:"xmlns,attr"`
	Items   []relationship `xml:"Relationship"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type contentTypes struct {
	XMLName   xml.Name     `xml:"Types"`
	Xmlns     string       `xml:"xmlns,attr"`
	Defaults  []ctDefault  `xml:"Default"`
	Overrides []ctOverride `xml:"Override"`
}

type ctDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type ctOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

const (
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
)

// stylesXML 文档默认字体 Times New Roman 13pt，1.5 倍行距
const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:docDefaults>
    <w:rPrDefault>
      <w:rPr>
        <w:rFonts w:ascii="Times New Roman" w:hAnsi="Times New Roman" w:eastAsia="Times New Roman" w:cs="Times New Roman"/>
        <w:sz w:val="26"/>
        <w:szCs w:val="26"/>
        <w:lang w:val="vi-VN"/>
      </w:rPr>
    </w:rPrDefault>
    <w:pPrDefault>
      <w:pPr>
        <w:spacing w:after="0" w:line="360" w:lineRule="auto"/>
      </w:pPr>
    </w:pPrDefault>
  </w:docDefaults>
  <w:style w:type="paragraph" w:default="1" w:styleId="Normal">
    <w:name w:val="Normal"/>
    <w:qFormat/>
  </w:style>
  <w:style w:type="table" w:default="1" w:styleId="TableNormal">
    <w:name w:val="Normal Table"/>
    <w:tblPr>
      <w:tblInd w:w="0" w:type="dxa"/>
      <w:tblCellMar>
        <w:top w:w="0" w:type="dxa"/>
        <w:left w:w="108" w:type="dxa"/>
        <w:bottom w:w="0" w:type="dxa"/>
        <w:right w:w="108" w:type="dxa"/>
      </w:tblCellMar>
    </w:tblPr>
  </w:style>
</w:styles>
`

// drawingXML 参数：cx, cy（EMU）, docPr id, 文件名, 关系 id
const drawingXML = `<wp:inline distT="0" distB="0" distL="0" distR="0">` +
	`<wp:extent cx="%[1]d" cy="%[2]d"/>` +
	`<wp:docPr id="%[3]d" name="Picture %[3]d"/>` +
	`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>` +
	`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:pic><pic:nvPicPr><pic:cNvPr id="%[3]d" name="%[4]s"/><pic:cNvPicPr/></pic:nvPicPr>` +
	`<pic:blipFill><a:blip r:embed="%[5]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
	`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm>` +
	`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic>` +
	`</a:graphicData></a:graphic></wp:inline>`
