package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"medig/internal/derive"
	"medig/internal/domain"
)

const noResults = "Không có"

type adminSummary struct {
	Gender domain.Gender `json:"gioi_tinh"`
	Age    *int          `json:"tuoi"`
}

type pastSummary struct {
	Personal string `json:"ban_than"`
	Family   string `json:"gia_dinh"`
}

type examSummary struct {
	General string            `json:"tong_trang"`
	Organs  string            `json:"kham_co_quan"`
	Vitals  domain.VitalSigns `json:"sinh_hieu"`
}

type patientContext struct {
	Admin              adminSummary `json:"hanh_chinh"`
	Reason             string       `json:"ly_do_nhap_vien"`
	History            string       `json:"benh_su"`
	AdmissionState     string       `json:"tinh_trang_luc_nhap_vien"`
	Past               pastSummary  `json:"tien_can"`
	Exam               examSummary  `json:"kham_lam_sang"`
	Summary            string       `json:"tom_tat_benh_an"`
	ProblemList        string       `json:"problem_list"`
	PrelimDiagnosis    string       `json:"chuan_doan_so_bo"`
	DiffDiagnosis      string       `json:"chuan_doan_phan_biet"`
	ParaclinicalResult string       `json:"ket_qua_can_lam_sang"`
}

type preOpSummary struct {
	HistoryTaking string `json:"khai_benh"`
	GeneralState  string `json:"tong_trang"`
	Paraclinical  string `json:"ket_qua_can_lam_sang_truoc_mo"`
	Diagnosis     string `json:"chan_doan_truoc_mo"`
}

type intraOpSummary struct {
	Classification domain.SurgeryClassification `json:"phan_loai"`
	Time           string                       `json:"thoi_gian"`
	Position       string                       `json:"tu_the"`
	SurgeryMethod  string                       `json:"loai_phau_thuat"`
	Anesthesia     string                       `json:"phuong_phap_vo_cam"`
	Procedure      string                       `json:"phuong_phap_xu_ly"`
	Complications  string                       `json:"tai_bien"`
}

type postOpContext struct {
	Admin              adminSummary   `json:"hanh_chinh"`
	Reason             string         `json:"ly_do_nhap_vien"`
	PreOp              preOpSummary   `json:"qua_trinh_truoc_mo"`
	IntraOp            intraOpSummary `json:"qua_trinh_trong_mo"`
	PostOpCourse       string         `json:"dien_tien_sau_mo"`
	SystemReview       string         `json:"luoc_qua_cac_co_quan"`
	Past               pastSummary    `json:"tien_can"`
	Exam               examSummary    `json:"kham_lam_sang_hien_tai"`
	PostOpParaclinical string         `json:"ket_qua_can_lam_sang_sau_mo"`
	Summary            string         `json:"tom_tat_benh_an"`
	FinalDiagnosis     string         `json:"chan_doan_xac_dinh"`
}

// SerializeRecord 生成提示词中使用的病历 JSON（键名为越南语缩写）
func SerializeRecord(rec domain.Record, now time.Time) (string, error) {
	var v interface{}
	switch r := rec.(type) {
	case *domain.PatientRecord:
		v = patientContextOf(r, now)
	case *domain.PostOpRecord:
		v = postOpContextOf(r, now)
	default:
		return "", fmt.Errorf("serialize %T: unsupported record", rec)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("serialize record: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func adminOf(a domain.AdminDetails, now time.Time) adminSummary {
	s := adminSummary{Gender: a.Gender}
	if age, ok := derive.Age(a.BirthYear, now); ok {
		s.Age = &age
	}
	return s
}

func pastOf(p domain.PastHistory) pastSummary {
	var personal []string
	for _, e := range p.Personal.Custom {
		if e.Name != "" && e.Content != "" {
			personal = append(personal, e.Name+": "+e.Content)
		}
	}
	return pastSummary{Personal: strings.Join(personal, "; "), Family: p.Family.Content}
}

func examOf(e domain.Examination) examSummary {
	return examSummary{General: e.General, Organs: organsOf(e.CustomOrgans), Vitals: e.Vitals}
}

func flatten(s string) string { return strings.ReplaceAll(s, "\n", " ") }

// organsOf "Tim: Nghe: T1 T2 đều; Mô tả chung: ..." 以 " || " 连接
func organsOf(organs []domain.OrganExam) string {
	var out []string
	for _, o := range organs {
		if !o.Enabled || o.Name == "" {
			continue
		}
		var techs []string
		for _, t := range o.Techniques {
			if t.Name != "" && t.Content != "" {
				techs = append(techs, t.Name+": "+flatten(t.Content))
			}
		}
		parts := techs
		if o.GeneralContent != "" {
			parts = append(parts, "Mô tả chung: "+flatten(o.GeneralContent))
		}
		out = append(out, o.Name+": "+strings.Join(parts, "; "))
	}
	return strings.Join(out, " || ")
}

// SerializeParaclinical 辅助检查结果的单行文本
func SerializeParaclinical(items []domain.ParaclinicalItem) string {
	if len(items) == 0 {
		return noResults
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		date := it.Date
		if date == "" {
			date = "N/A"
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s (%s):", it.Name, date)
		hasText := strings.TrimSpace(it.ResultText) != ""
		if hasText {
			sb.WriteString(" " + flatten(it.ResultText))
		}
		if it.HasTable() {
			if hasText {
				sb.WriteString(" |")
			}
			rows := make([]string, 0, len(it.TableData)-1)
			for _, row := range it.TableData[1:] {
				rows = append(rows, strings.Join(row, " | "))
			}
			fmt.Fprintf(&sb, " Dữ liệu bảng: %s; %s", strings.Join(it.TableData[0], " | "), strings.Join(rows, "; "))
		}
		out = append(out, sb.String())
	}
	return strings.Join(out, " || ")
}

func patientContextOf(r *domain.PatientRecord, now time.Time) patientContext {
	return patientContext{
		Admin:              adminOf(r.AdminDetails, now),
		Reason:             r.ReasonForAdmission,
		History:            r.History.Description,
		AdmissionState:     r.AdmissionState.SystemReview,
		Past:               pastOf(r.PastHistory),
		Exam:               examOf(r.Examination),
		Summary:            r.Summary,
		ProblemList:        r.ProblemList,
		PrelimDiagnosis:    r.PreliminaryDiagnosis,
		DiffDiagnosis:      r.DifferentialDiagnosis,
		ParaclinicalResult: SerializeParaclinical(r.ParaclinicalResults),
	}
}

func postOpContextOf(r *domain.PostOpRecord, now time.Time) postOpContext {
	pre := r.MedicalHistory.PreOp
	op := r.MedicalHistory.IntraOp

	preOp := preOpSummary{
		HistoryTaking: pre.HistoryTaking.Description,
		Paraclinical:  noResults,
		Diagnosis:     pre.PreOpDiagnosis.Diagnosis,
	}
	if pre.GeneralState.Enabled {
		preOp.GeneralState = pre.GeneralState.Content
	}
	if pre.PreOpParaclinical.Enabled {
		preOp.Paraclinical = SerializeParaclinical(pre.PreOpParaclinical.Results)
	}

	days := make([]string, 0, len(r.MedicalHistory.PostOp.DailyExams))
	for i, e := range r.MedicalHistory.PostOp.DailyExams {
		days = append(days, fmt.Sprintf("Hậu phẫu ngày %d: %s", i+1, e.Content))
	}

	return postOpContext{
		Admin:   adminOf(r.AdminDetails, now),
		Reason:  r.ReasonForAdmission,
		PreOp:   preOp,
		IntraOp: intraOpSummary{
			Classification: op.SurgeryClassification,
			Time:           fmt.Sprintf("từ %s %s đến %s %s", op.StartTime, op.StartDate, op.EndTime, op.EndDate),
			Position:       op.PatientPosition,
			SurgeryMethod:  op.SurgeryMethod,
			Anesthesia:     op.AnesthesiaMethod,
			Procedure:      op.SurgeryProcedure,
			Complications:  op.Complications,
		},
		PostOpCourse:       strings.Join(days, " | "),
		SystemReview:       r.SystemReview,
		Past:               pastOf(r.PastHistory),
		Exam:               examOf(r.Examination),
		PostOpParaclinical: SerializeParaclinical(r.PostOpParaclinicalResults),
		Summary:            r.Summary,
		FinalDiagnosis:     r.FinalDiagnosis,
	}
}
