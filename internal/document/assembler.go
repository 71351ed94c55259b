package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"medig/internal/derive"
	"medig/internal/domain"
)

var ErrVariantMismatch = errors.New("record does not match variant")

var titles = map[domain.Variant]string{
	domain.VariantPreOp:       "BỆNH ÁN TIỀN PHẪU",
	domain.VariantPostOp:      "BỆNH ÁN HẬU PHẪU",
	domain.VariantInternalMed: "BỆNH ÁN NỘI KHOA",
}

const (
	defaultSystemReviewLine = "Bệnh nhân tỉnh, tiếp xúc tốt."
	defaultFamilyHistory    = "Chưa ghi nhận bất thường"
)

// Assembler 将病历转换为有序的文档块
type Assembler struct {
	now func() time.Time
}

func NewAssembler(now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{now: now}
}

// Assemble 按类型模板生成块序列
func (a *Assembler) Assemble(rec domain.Record, variant domain.Variant) ([]Block, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: unknown variant %q", ErrVariantMismatch, variant)
	}
	if rec == nil || !variant.Accepts(rec) {
		return nil, fmt.Errorf("%w: %T as %s", ErrVariantMismatch, rec, variant)
	}
	b := &builder{}
	b.add(Block{Kind: KindTitle, Text: titles[variant]})
	switch r := rec.(type) {
	case *domain.PatientRecord:
		a.patient(b, r)
	case *domain.PostOpRecord:
		a.postOp(b, r)
	}
	return b.out, nil
}

func (a *Assembler) patient(b *builder, r *domain.PatientRecord) {
	ad := r.AdminDetails
	b.section("I.\tHÀNH CHÍNH:")
	b.field("Họ và tên", strings.ToUpper(ad.FullName))
	b.field("Năm sinh", a.birthYear(ad.BirthYear))
	b.field("Giới tính", string(ad.Gender))
	b.field("Dân tộc", ad.Ethnicity)
	b.field("Địa chỉ", ad.Address)
	b.field("Nghề nghiệp", ad.Occupation)
	b.field("Ngày nhập viện", ad.AdmissionDate)

	b.section("II.\tLÝ DO NHẬP VIỆN:")
	b.dash(r.ReasonForAdmission)

	b.section("III.\tBỆNH SỬ:")
	b.field("Người khai bệnh", r.History.Informant)
	b.dash(r.History.Description)

	b.section("IV.\tTÌNH TRẠNG LÚC NHẬP VIỆN:")
	b.numbered("1. Sinh hiệu:")
	b.vitals(r.AdmissionState.Vitals, false)
	b.numbered("2. Lược qua các cơ quan:")
	b.dash(firstNonBlank(r.AdmissionState.SystemReview, defaultSystemReviewLine))

	b.section("V.\tTIỀN CĂN:")
	b.pastHistory(r.PastHistory)

	b.section("VI.\tKHÁM LÂM SÀNG:")
	b.examination(r.Examination)

	b.section("VII.\tTÓM TẮT BỆNH ÁN:")
	b.dash(r.Summary)
	b.section("VIII.\tĐẶT VẤN ĐỀ:")
	b.dash(r.ProblemList)
	b.section("IX.\tCHẨN ĐOÁN SƠ BỘ:")
	b.dash(r.PreliminaryDiagnosis)
	b.section("X.\tCHẨN ĐOÁN PHÂN BIỆT:")
	b.dash(r.DifferentialDiagnosis)
	b.section("XI.\tBIỆN LUẬN LÂM SÀNG:")
	b.dash(r.ClinicalDiscussion)
	b.section("XII.\tĐỀ NGHỊ CẬN LÂM SÀNG:")
	b.dash(r.ParaclinicalRequests)

	b.section("XIII.\tKẾT QUẢ CẬN LÂM SÀNG:")
	b.paraclinical(r.ParaclinicalResults)

	b.section("XIV.\tBIỆN LUẬN CẬN LÂM SÀNG:")
	b.dash(r.ParaclinicalDiscussion)
	b.section("XV.\tCHẨN ĐOÁN XÁC ĐỊNH:")
	b.add(Block{Kind: KindStrong, Text: r.FinalDiagnosis})
	b.section("XVI.\tHƯỚNG XỬ TRÍ:")
	b.dash(r.TreatmentPlan)
}

func (a *Assembler) postOp(b *builder, r *domain.PostOpRecord) {
	ad := r.AdminDetails
	b.section("I.\tHÀNH CHÍNH:")
	b.field("Họ và tên", strings.ToUpper(ad.FullName))
	b.field("Năm sinh", a.birthYear(ad.BirthYear))
	b.field("Giới tính", string(ad.Gender))
	b.field("Địa chỉ", ad.Address)
	b.field("Nghề nghiệp", ad.Occupation)
	b.field("Ngày nhập viện", ad.AdmissionDate)
	b.field("Ngày làm bệnh án", ad.ReportDate)

	b.section("II.\tLÝ DO NHẬP VIỆN:")
	b.dash(r.ReasonForAdmission)

	b.section("III.\tBỆNH SỬ:")
	pre := r.MedicalHistory.PreOp
	b.sub("A. Quá trình trước mổ:")
	if pre.HistoryTaking.Enabled {
		b.sub("Khai bệnh:")
		b.field("Người khai bệnh", pre.HistoryTaking.Informant)
		b.dash(pre.HistoryTaking.Description)
	}
	if pre.AdmissionVitals.Enabled {
		b.sub("Sinh hiệu:")
		b.field("Thời gian", pre.AdmissionVitals.Time+" ngày "+pre.AdmissionVitals.Date)
		b.vitals(pre.AdmissionVitals.Vitals, false)
	}
	if pre.GeneralState.Enabled {
		b.sub("Tổng trạng:")
		b.dash(pre.GeneralState.Content)
	}
	if pre.PreOpParaclinical.Enabled && len(pre.PreOpParaclinical.Results) > 0 {
		b.sub("Cận lâm sàng đã làm:")
		b.paraclinical(pre.PreOpParaclinical.Results)
	}
	if pre.PreOpDiagnosis.Enabled {
		b.sub("Chẩn đoán trước mổ:")
		b.dash(pre.PreOpDiagnosis.Diagnosis)
	}

	op := r.MedicalHistory.IntraOp
	b.sub("B. Quá trình trong mổ (Tường trình phẫu thuật):")
	b.field("Phân loại", "Mổ "+string(op.SurgeryClassification))
	b.field("Thời gian phẫu thuật", fmt.Sprintf("từ %s %s đến %s %s",
		orPlaceholder(op.StartTime), orPlaceholder(op.StartDate),
		orPlaceholder(op.EndTime), orPlaceholder(op.EndDate)))
	b.field("Tư thế bệnh nhân", op.PatientPosition)
	b.field("Phương pháp vô cảm", op.AnesthesiaMethod)
	b.field("Loại phẫu thuật", op.SurgeryMethod)
	b.field("Phương pháp xử lý", op.SurgeryProcedure)
	b.field("Tai biến", op.Complications)

	b.sub("C. Quá trình sau mổ:")
	for i, exam := range r.MedicalHistory.PostOp.DailyExams {
		if strings.TrimSpace(exam.Content) == "" {
			continue
		}
		b.field("", "Hậu phẫu ngày "+strconv.Itoa(i+1)+":")
		b.plus(exam.Content)
	}

	b.section("IV.\tLƯỢC QUA CÁC CƠ QUAN:")
	b.dash(r.SystemReview)

	b.section("V.\tTIỀN CĂN:")
	b.pastHistory(r.PastHistory)

	b.section("VI.\tKHÁM LÂM SÀNG:")
	b.examination(r.Examination)

	b.section("VII.\tCẬN LÂM SÀNG SAU MỔ:")
	b.paraclinical(r.PostOpParaclinicalResults)

	b.section("VIII.\tTÓM TẮT BỆNH ÁN:")
	b.dash(r.Summary)
	b.section("IX.\tBIỆN LUẬN LÂM SÀNG:")
	b.dash(r.ClinicalDiscussion)
	b.section("X.\tCHẨN ĐOÁN XÁC ĐỊNH:")
	b.add(Block{Kind: KindStrong, Text: r.FinalDiagnosis})
	b.section("XI.\tHƯỚNG XỬ TRÍ:")
	b.dash(r.TreatmentPlan)
}

// birthYear "1990 (35 tuổi)"；年份无效时只输出原值
func (a *Assembler) birthYear(year string) string {
	age, ok := derive.Age(year, a.now())
	if !ok {
		return year
	}
	return fmt.Sprintf("%s (%d tuổi)", year, age)
}

type builder struct {
	out []Block
}

func (b *builder) add(blk Block) { b.out = append(b.out, blk) }

func (b *builder) section(text string) {
	b.add(Block{Kind: KindSectionHeading, Text: strings.ToUpper(text)})
}

func (b *builder) sub(text string) { b.add(Block{Kind: KindSubheading, Text: text}) }

func (b *builder) numbered(text string) { b.add(Block{Kind: KindNumberedHeading, Text: text}) }

func (b *builder) field(label, value string) {
	b.add(Block{Kind: KindField, Label: label, Text: value})
}

func (b *builder) dash(text string) {
	if lines := bulletLines(text); len(lines) > 0 {
		b.add(Block{Kind: KindDashText, Lines: lines})
	}
}

func (b *builder) plus(text string) {
	if lines := bulletLines(text); len(lines) > 0 {
		b.add(Block{Kind: KindPlusText, Lines: lines})
	}
}

func (b *builder) vitals(v domain.VitalSigns, withBody bool) {
	bp := placeholder
	if v.BP1 != "" && v.BP2 != "" {
		bp = v.BP1 + "/" + v.BP2
	}
	vb := &VitalsBlock{
		Pulse:         orPlaceholder(v.Pulse),
		SpO2:          orPlaceholder(v.SpO2),
		BloodPressure: bp,
		Resp:          orPlaceholder(v.Resp),
		Temp:          orPlaceholder(v.Temp),
	}
	if withBody && v.HasBody() {
		vb.ShowBody = true
		vb.Height = v.Height
		vb.Weight = v.Weight
		vb.BMI = v.BMI
		vb.Classification = v.Classification
	}
	b.add(Block{Kind: KindVitals, Vitals: vb})
}

func (b *builder) pastHistory(p domain.PastHistory) {
	b.numbered("1. Tiền căn cá nhân:")
	for _, e := range p.Personal.Custom {
		if e.Name == "" {
			continue
		}
		b.field("", e.Name+":")
		b.plus(e.Content)
	}
	if p.Family.Enabled {
		b.numbered("2. Tiền căn gia đình:")
		b.dash(firstNonBlank(p.Family.Content, defaultFamilyHistory))
	}
}

func (b *builder) examination(e domain.Examination) {
	b.field("Thời gian khám", e.Time+" ngày "+e.Date)
	b.numbered("1. Tổng trạng:")
	b.vitals(e.Vitals, true)
	b.dash(e.General)

	n := 2
	for _, o := range e.CustomOrgans {
		if !o.Enabled || o.Name == "" {
			continue
		}
		b.numbered(fmt.Sprintf("%d. %s:", n, o.Name))
		for _, t := range o.Techniques {
			if t.Name == "" {
				continue
			}
			b.field("", t.Name+":")
			b.plus(t.Content)
		}
		b.dash(o.GeneralContent)
		n++
	}
}

// paraclinical 每个结果列表单独从 1 编号，无名称的条目跳过
func (b *builder) paraclinical(items []domain.ParaclinicalItem) {
	n := 1
	for _, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		b.numbered(fmt.Sprintf("%d. %s (%s):", n, it.Name, it.Date))
		b.dash(it.ResultText)
		if it.HasTable() {
			b.add(Block{Kind: KindTable, Rows: it.Clone().TableData})
		}
		if it.Image != "" {
			b.add(Block{Kind: KindImage, Image: it.Image})
		}
		n++
	}
}

func firstNonBlank(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
