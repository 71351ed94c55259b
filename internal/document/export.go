package document

import (
	"fmt"
	"regexp"

	"medig/internal/domain"
)

var filePrefixes = map[domain.Variant]string{
	domain.VariantPreOp:       "BenhAn_TienPhau_",
	domain.VariantPostOp:      "BenhAn_HauPhau_",
	domain.VariantInternalMed: "BenhAn_NoiKhoa_",
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeName    = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]|\.\.`)
)

// File 导出的文档
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

const ContentTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// FileName BenhAn_<类型>_<姓名>.docx，姓名为空时用 Untitled；路径分隔符和 ".." 替换为 "_"
func FileName(rec domain.Record, variant domain.Variant) string {
	name := rec.Admin().FullName
	if name == "" {
		name = "Untitled"
	}
	name = whitespaceRun.ReplaceAllString(name, "_")
	return filePrefixes[variant] + unsafeName.ReplaceAllString(name, "_") + ".docx"
}

// Exporter 组装 + 渲染
type Exporter struct {
	assembler *Assembler
	renderer  *Renderer
}

func NewExporter(assembler *Assembler, renderer *Renderer) *Exporter {
	return &Exporter{assembler: assembler, renderer: renderer}
}

func (e *Exporter) Export(rec domain.Record, variant domain.Variant) (*File, error) {
	blocks, err := e.assembler.Assemble(rec, variant)
	if err != nil {
		return nil, err
	}
	content, err := e.renderer.Render(blocks)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", variant, err)
	}
	return &File{
		Name:        FileName(rec, variant),
		ContentType: ContentTypeDocx,
		Content:     content,
	}, nil
}
