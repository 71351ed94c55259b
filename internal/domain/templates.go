package domain

import (
	"encoding/json"
	"fmt"
)

const (
	DefaultEthnicity = "Kinh"
	DefaultInformant = "Bệnh nhân"
	DefaultTemp      = "37"
)

// DefaultSystemReview 各系统回顾的默认文本
const DefaultSystemReview = `Tim mạch: không đau ngực, không hồi hộp, không đánh trống ngực.
Hô hấp: không ho, không khó thở, không khò khè.
Tiêu hóa: Không đau bụng, không buồn nôn và nôn, không bí trung đại tiện.
Tiết niệu – sinh dục: không tiểu buốt/tiểu lắt nhắt, nước tiểu vàng trong.
Thần kinh: không đau đầu, không chóng mặt, không khó ngủ.
Cơ xương khớp: không giới hạn vận động, không đau nhức các khớp và cơ.`

// DefaultGeneralState 一般情况默认文本
const DefaultGeneralState = `Bệnh nhân tỉnh, tiếp xúc tốt.
Da niêm hồng hào.
Hạch ngoại vi không sờ chạm.
Chi ấm, không phù.
Mạch quay rõ, CRT<2s.`

func defaultAdmin() AdminDetails {
	return AdminDetails{Ethnicity: DefaultEthnicity, Gender: GenderMale}
}

func defaultPastHistory() PastHistory {
	return PastHistory{
		Personal: PersonalHistory{Custom: []HistoryEntry{}},
		Family:   ToggleText{Enabled: true},
	}
}

// NewPatientRecord 新建术前/内科病历模板
func NewPatientRecord(id string) *PatientRecord {
	vitals := VitalSigns{Temp: DefaultTemp}
	return &PatientRecord{
		ID:           id,
		AdminDetails: defaultAdmin(),
		History:      History{Informant: DefaultInformant},
		AdmissionState: AdmissionState{
			Vitals:       vitals,
			SystemReview: DefaultSystemReview,
		},
		PastHistory: defaultPastHistory(),
		Examination: Examination{
			Vitals:       vitals,
			General:      DefaultGeneralState,
			CustomOrgans: []OrganExam{},
		},
		ParaclinicalResults: []ParaclinicalItem{},
	}
}

// NewPostOpRecord 新建术后病历模板，术前各子块默认关闭
func NewPostOpRecord(id string) *PostOpRecord {
	return &PostOpRecord{
		ID:           id,
		AdminDetails: defaultAdmin(),
		MedicalHistory: MedicalHistory{
			PreOp: PreOpCourse{
				HistoryTaking:     HistoryTaking{Informant: DefaultInformant},
				GeneralState:      ToggleText{Content: DefaultGeneralState},
				PreOpParaclinical: PreOpParaclinical{Results: []ParaclinicalItem{}},
			},
			IntraOp: IntraOpReport{SurgeryClassification: SurgeryElective},
			PostOp:  PostOpCourse{DailyExams: []DailyExam{}},
		},
		SystemReview: DefaultSystemReview,
		PastHistory:  defaultPastHistory(),
		Examination: Examination{
			General:      DefaultGeneralState,
			CustomOrgans: []OrganExam{},
		},
		PostOpParaclinicalResults: []ParaclinicalItem{},
	}
}

// NewRecord 按类型创建空白病历
func NewRecord(v Variant, id string) Record {
	if v == VariantPostOp {
		return NewPostOpRecord(id)
	}
	return NewPatientRecord(id)
}

// DefaultLabTable 默认化验表格：表头 + 一行空白
func DefaultLabTable() [][]string {
	return [][]string{
		{"Tên xét nghiệm", "Kết quả", "Trị số tham chiếu", "Đơn vị"},
		{"", "", "", ""},
	}
}

// DecodeRecord 以对应类型的空白模板为底解码 JSON，缺失字段保留默认值
func DecodeRecord(v Variant, data []byte) (Record, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownVariant, v)
	}
	rec := NewRecord(v, "")
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", v, err)
	}
	return rec, nil
}
