package domain

// Technique 检查手法（Nhìn / Sờ / Gõ / Nghe ...）
type Technique struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// OrganExam 器官检查
type OrganExam struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Enabled        bool        `json:"enabled"`
	Techniques     []Technique `json:"techniques"`
	GeneralContent string      `json:"generalContent"`
}

func (o OrganExam) Clone() OrganExam {
	out := o
	out.Techniques = append([]Technique(nil), o.Techniques...)
	return out
}

// HistoryEntry 个人既往史条目
type HistoryEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ToggleText 可开关的文本块
type ToggleText struct {
	Enabled bool   `json:"enabled"`
	Content string `json:"content"`
}

// PastHistory 既往史（Tiền căn）
type PastHistory struct {
	Personal PersonalHistory `json:"personal"`
	Family   ToggleText      `json:"family"`
}

type PersonalHistory struct {
	Custom []HistoryEntry `json:"custom"`
}

func (p PastHistory) Clone() PastHistory {
	out := p
	out.Personal.Custom = append([]HistoryEntry(nil), p.Personal.Custom...)
	return out
}

// Examination 体格检查（Khám lâm sàng）
type Examination struct {
	Date         string      `json:"date"` // dd/mm/yyyy
	Time         string      `json:"time"` // hh:mm
	Vitals       VitalSigns  `json:"vitals"`
	General      string      `json:"general"`
	CustomOrgans []OrganExam `json:"customOrgans"`
}

func (e Examination) Clone() Examination {
	out := e
	if e.CustomOrgans != nil {
		out.CustomOrgans = make([]OrganExam, len(e.CustomOrgans))
		for i, o := range e.CustomOrgans {
			out.CustomOrgans[i] = o.Clone()
		}
	}
	return out
}
