// Package document 病历文档：记录 → 块序列 → .docx
package document

import (
	"fmt"
	"strings"
)

// Kind 块类型
type Kind int

const (
	KindTitle Kind = iota
	KindSectionHeading
	KindSubheading
	KindNumberedHeading
	KindDashText
	KindPlusText
	KindField
	KindVitals
	KindStrong
	KindTable
	KindImage
)

var kindNames = map[Kind]string{
	KindTitle:           "title",
	KindSectionHeading:  "section_heading",
	KindSubheading:      "subheading",
	KindNumberedHeading: "numbered_heading",
	KindDashText:        "dash_text",
	KindPlusText:        "plus_text",
	KindField:           "field",
	KindVitals:          "vitals",
	KindStrong:          "strong",
	KindTable:           "table",
	KindImage:           "image",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Block 文档块
//
// Text 用于标题类与加粗行；Field 行为 "– Label: Value"，Label 为空时为 "– Value"；
// DashText/PlusText 的 Lines 已去空行并 trim。
type Block struct {
	Kind   Kind         `json:"kind"`
	Text   string       `json:"text,omitempty"`
	Label  string       `json:"label,omitempty"`
	Lines  []string     `json:"lines,omitempty"`
	Vitals *VitalsBlock `json:"vitals,omitempty"`
	Rows   [][]string   `json:"rows,omitempty"`
	Image  string       `json:"image,omitempty"`
}

// VitalsBlock 生命体征块，缺失值已替换为占位符
type VitalsBlock struct {
	Pulse         string `json:"pulse"`
	SpO2          string `json:"spo2"`
	BloodPressure string `json:"bloodPressure"`
	Resp          string `json:"resp"`
	Temp          string `json:"temp"`

	ShowBody       bool   `json:"showBody"`
	Height         string `json:"height,omitempty"`
	Weight         string `json:"weight,omitempty"`
	BMI            string `json:"bmi,omitempty"`
	Classification string `json:"classification,omitempty"`
}

const placeholder = "..."

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

// bulletLines 按行拆分，去掉空白行并 trim
func bulletLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			out = append(out, l)
		}
	}
	return out
}
