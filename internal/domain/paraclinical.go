package domain

// ParaclinicalItem 辅助检查结果（Cận lâm sàng）
// Image 为 data URL（data:image/png;base64,...），TableData 第 0 行为表头
type ParaclinicalItem struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Date       string     `json:"date"`
	ResultText string     `json:"resultText"`
	Image      string     `json:"image,omitempty"`
	TableData  [][]string `json:"tableData,omitempty"`
}

func (p ParaclinicalItem) Clone() ParaclinicalItem {
	out := p
	if p.TableData != nil {
		out.TableData = make([][]string, len(p.TableData))
		for i, row := range p.TableData {
			out.TableData[i] = append([]string(nil), row...)
		}
	}
	return out
}

// HasTable 表格至少包含一行
func (p ParaclinicalItem) HasTable() bool {
	return len(p.TableData) > 0
}

func cloneItems(items []ParaclinicalItem) []ParaclinicalItem {
	if items == nil {
		return nil
	}
	out := make([]ParaclinicalItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
