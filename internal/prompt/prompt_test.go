package prompt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medig/internal/domain"
)

var now = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

func TestBuildChatPrompt(t *testing.T) {
	rec := domain.NewPatientRecord("r1")
	history := []domain.ChatMessage{
		{Role: domain.RoleUser, Text: "Hi"},
		{Role: domain.RoleModel, Text: "Hello"},
	}

	p, err := BuildChatPrompt(rec, domain.VariantPreOp, history, now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(p, "Bạn là MediG"))
	assert.Contains(t, p, "hồ sơ bệnh án pre-op.")
	assert.Contains(t, p, "User: Hi\nAssistant: Hello")
	assert.True(t, strings.HasSuffix(p, "Assistant:"))
	assert.Less(t, strings.Index(p, `"hanh_chinh"`), strings.Index(p, "User: Hi"))
}

func TestSerializeRecord_PatientKeysAndValues(t *testing.T) {
	rec := domain.NewPatientRecord("r1")
	rec.AdminDetails.BirthYear = "1980"
	rec.PastHistory.Personal.Custom = []domain.HistoryEntry{
		{Name: "Tăng huyết áp", Content: "5 năm"},
		{Name: "Bỏ qua"},
	}
	rec.Examination.Vitals.Classification = "Bình thường theo IDI & WPRO"
	rec.Examination.CustomOrgans = []domain.OrganExam{{
		Name:           "Tim",
		Enabled:        true,
		Techniques:     []domain.Technique{{Name: "Nghe", Content: "T1 T2\nđều"}},
		GeneralContent: "Không âm thổi",
	}}

	s, err := SerializeRecord(rec, now)
	require.NoError(t, err)
	assert.Contains(t, s, "IDI & WPRO")
	assert.NotContains(t, s, `\u0026`)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &got))
	admin := got["hanh_chinh"].(map[string]interface{})
	assert.Equal(t, "Nam", admin["gioi_tinh"])
	assert.Equal(t, float64(45), admin["tuoi"])
	assert.Equal(t, "Tăng huyết áp: 5 năm", got["tien_can"].(map[string]interface{})["ban_than"])
	exam := got["kham_lam_sang"].(map[string]interface{})
	assert.Equal(t, "Tim: Nghe: T1 T2 đều; Mô tả chung: Không âm thổi", exam["kham_co_quan"])
	assert.Equal(t, "Không có", got["ket_qua_can_lam_sang"])

	// 键顺序保持
	assert.Less(t, strings.Index(s, `"hanh_chinh"`), strings.Index(s, `"ly_do_nhap_vien"`))
	assert.Less(t, strings.Index(s, `"chuan_doan_phan_biet"`), strings.Index(s, `"ket_qua_can_lam_sang"`))
}

func TestSerializeRecord_InvalidBirthYearIsNull(t *testing.T) {
	s, err := SerializeRecord(domain.NewPatientRecord("r1"), now)
	require.NoError(t, err)
	assert.Contains(t, s, `"tuoi": null`)
}

func TestSerializeParaclinical(t *testing.T) {
	assert.Equal(t, "Không có", SerializeParaclinical(nil))

	got := SerializeParaclinical([]domain.ParaclinicalItem{
		{Name: "CTM", Date: "01/06/2025", ResultText: "WBC tăng\nNEU tăng", TableData: [][]string{{"Tên", "KQ"}, {"WBC", "15"}, {"NEU", "80"}}},
		{Name: "XQ"},
	})
	assert.Equal(t, "CTM (01/06/2025): WBC tăng NEU tăng | Dữ liệu bảng: Tên | KQ; WBC | 15; NEU | 80 || XQ (N/A):", got)
}

func TestSerializeRecord_PostOp(t *testing.T) {
	rec := domain.NewPostOpRecord("p1")
	rec.MedicalHistory.PreOp.GeneralState.Content = "ẩn"
	rec.MedicalHistory.PreOp.PreOpParaclinical.Results = []domain.ParaclinicalItem{{Name: "Siêu âm"}}
	rec.MedicalHistory.PostOp.DailyExams = []domain.DailyExam{{Content: "Sốt"}, {Content: "Ổn"}}

	s, err := SerializeRecord(rec, now)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &got))
	pre := got["qua_trinh_truoc_mo"].(map[string]interface{})
	assert.Equal(t, "", pre["tong_trang"])
	assert.Equal(t, "Không có", pre["ket_qua_can_lam_sang_truoc_mo"])
	assert.Equal(t, "Hậu phẫu ngày 1: Sốt | Hậu phẫu ngày 2: Ổn", got["dien_tien_sau_mo"])
	assert.Equal(t, "Chương trình", got["qua_trinh_trong_mo"].(map[string]interface{})["phan_loai"])
}

func TestBuildPrompt_TaskSets(t *testing.T) {
	assert.Len(t, TasksFor(domain.VariantPreOp), 9)
	assert.Len(t, TasksFor(domain.VariantInternalMed), 9)
	assert.Len(t, TasksFor(domain.VariantPostOp), 4)

	_, err := BuildPrompt(domain.NewPostOpRecord("p1"), domain.VariantPostOp, TaskProblem, now)
	assert.True(t, errors.Is(err, ErrUnsupportedTask))
	_, err = BuildPrompt(domain.NewPatientRecord("r1"), domain.VariantPreOp, Task("NOPE"), now)
	assert.True(t, errors.Is(err, ErrUnsupportedTask))

	field, err := TargetField(domain.VariantPreOp, TaskDiffDiagnosis)
	require.NoError(t, err)
	assert.Equal(t, "differentialDiagnosis", field)
}

func TestBuildPrompt_EmbedsUpstreamFields(t *testing.T) {
	rec := domain.NewPatientRecord("r1")
	rec.ClinicalDiscussion = "BL-LS"
	rec.ParaclinicalDiscussion = "BL-CLS"
	rec.PreliminaryDiagnosis = "CĐ-SB"

	p, err := BuildPrompt(rec, domain.VariantPreOp, TaskFinalDiagnosis, now)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "Biện luận lâm sàng: BL-LS\nBiện luận cận lâm sàng: BL-CLS\nChẩn đoán sơ bộ: CĐ-SB"))

	rec.Summary = "TT"
	p, err = BuildPrompt(rec, domain.VariantInternalMed, TaskProblem, now)
	require.NoError(t, err)
	assert.Contains(t, p, "Tóm tắt bệnh án: TT")
	assert.NotContains(t, p, `"hanh_chinh"`)
}

func TestBuildPrompt_PostOpSummaryDay(t *testing.T) {
	rec := domain.NewPostOpRecord("p1")
	rec.AdminDetails.BirthYear = "1970"
	rec.AdminDetails.ReportDate = "05/06/2025"
	rec.MedicalHistory.IntraOp.StartDate = "02/06/2025"
	rec.MedicalHistory.IntraOp.SurgeryMethod = "Cắt ruột thừa nội soi"
	rec.MedicalHistory.PreOp.PreOpDiagnosis.Diagnosis = "Viêm ruột thừa cấp"

	p, err := BuildPrompt(rec, domain.VariantPostOp, TaskSummary, now)
	require.NoError(t, err)
	assert.Contains(t, p, "- Bệnh nhân Nam 55 tuổi, hậu phẫu ngày thứ 3 phẫu thuật [Cắt ruột thừa nội soi] vì [Viêm ruột thừa cấp]")
	assert.Equal(t, 3, PostOpDay(rec, now))
}
