package domain

import (
	"errors"
	"fmt"
)

// Gender 性别
type Gender string

const (
	GenderMale   Gender = "Nam"
	GenderFemale Gender = "Nữ"
	GenderOther  Gender = "Khác"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// AdminDetails 行政信息（Hành chính）
type AdminDetails struct {
	FullName      string `json:"fullName"`
	BirthYear     string `json:"birthYear"`
	Ethnicity     string `json:"ethnicity"`
	Gender        Gender `json:"gender"`
	Address       string `json:"address"`
	Occupation    string `json:"occupation"`
	AdmissionDate string `json:"admissionDate"`
	ReportDate    string `json:"reportDate"` // dd/mm/yyyy
}

// Variant 病历类型
type Variant string

var ErrUnknownVariant = errors.New("unknown variant")

const (
	VariantPreOp       Variant = "pre-op"
	VariantPostOp      Variant = "post-op"
	VariantInternalMed Variant = "internal-med"
)

func (v Variant) Valid() bool {
	switch v {
	case VariantPreOp, VariantPostOp, VariantInternalMed:
		return true
	}
	return false
}

// ParseVariant 解析病历类型
func ParseVariant(s string) (Variant, error) {
	v := Variant(s)
	if !v.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownVariant, s)
	}
	return v, nil
}

// Record 两种病历结构的公共视图
type Record interface {
	CloneRecord() Record
	Admin() AdminDetails
	Exam() Examination
}

// Accepts 判断记录结构是否与类型匹配
func (v Variant) Accepts(rec Record) bool {
	switch rec.(type) {
	case *PatientRecord:
		return v == VariantPreOp || v == VariantInternalMed
	case *PostOpRecord:
		return v == VariantPostOp
	}
	return false
}

// History 现病史
type History struct {
	Informant   string `json:"informant"`
	Description string `json:"description"`
}

// AdmissionState 入院时情况
type AdmissionState struct {
	Vitals       VitalSigns `json:"vitals"`
	SystemReview string     `json:"systemReview"`
}

// PatientRecord 术前 / 内科病历
type PatientRecord struct {
	ID                     string             `json:"id"`
	AdminDetails           AdminDetails       `json:"adminDetails"`
	ReasonForAdmission     string             `json:"reasonForAdmission"`
	History                History            `json:"history"`
	AdmissionState         AdmissionState     `json:"admissionState"`
	PastHistory            PastHistory        `json:"pastHistory"`
	Examination            Examination        `json:"examination"`
	Summary                string             `json:"summary"`
	ProblemList            string             `json:"problemList"`
	PreliminaryDiagnosis   string             `json:"preliminaryDiagnosis"`
	DifferentialDiagnosis  string             `json:"differentialDiagnosis"`
	ClinicalDiscussion     string             `json:"clinicalDiscussion"`
	ParaclinicalRequests   string             `json:"paraclinicalRequests"`
	ParaclinicalResults    []ParaclinicalItem `json:"paraclinicalResults"`
	ParaclinicalDiscussion string             `json:"paraclinicalDiscussion"`
	FinalDiagnosis         string             `json:"finalDiagnosis"`
	TreatmentPlan          string             `json:"treatmentPlan"`
}

func (r *PatientRecord) Clone() *PatientRecord {
	out := *r
	out.PastHistory = r.PastHistory.Clone()
	out.Examination = r.Examination.Clone()
	out.ParaclinicalResults = cloneItems(r.ParaclinicalResults)
	return &out
}

func (r *PatientRecord) CloneRecord() Record { return r.Clone() }
func (r *PatientRecord) Admin() AdminDetails { return r.AdminDetails }
func (r *PatientRecord) Exam() Examination   { return r.Examination }

// SurgeryClassification 手术分类
type SurgeryClassification string

const (
	SurgeryElective  SurgeryClassification = "Chương trình"
	SurgeryEmergency SurgeryClassification = "Cấp cứu"
)

func (s SurgeryClassification) Valid() bool {
	return s == SurgeryElective || s == SurgeryEmergency
}

type HistoryTaking struct {
	Enabled     bool   `json:"enabled"`
	Informant   string `json:"informant"`
	Description string `json:"description"`
}

type AdmissionVitals struct {
	Enabled bool       `json:"enabled"`
	Date    string     `json:"date"`
	Time    string     `json:"time"`
	Vitals  VitalSigns `json:"vitals"`
}

type PreOpParaclinical struct {
	Enabled bool               `json:"enabled"`
	Results []ParaclinicalItem `json:"results"`
}

type PreOpDiagnosis struct {
	Enabled   bool   `json:"enabled"`
	Diagnosis string `json:"diagnosis"`
}

// PreOpCourse 术前经过（A. Quá trình trước mổ）
type PreOpCourse struct {
	HistoryTaking     HistoryTaking     `json:"historyTaking"`
	AdmissionVitals   AdmissionVitals   `json:"admissionVitals"`
	GeneralState      ToggleText        `json:"generalState"`
	PreOpParaclinical PreOpParaclinical `json:"preOpParaclinical"`
	PreOpDiagnosis    PreOpDiagnosis    `json:"preOpDiagnosis"`
}

// IntraOpReport 手术记录（B. Tường trình phẫu thuật）
type IntraOpReport struct {
	SurgeryClassification SurgeryClassification `json:"surgeryClassification"`
	StartDate             string                `json:"startDate"`
	StartTime             string                `json:"startTime"`
	EndDate               string                `json:"endDate"`
	EndTime               string                `json:"endTime"`
	PatientPosition       string                `json:"patientPosition"`
	SurgeryMethod         string                `json:"surgeryMethod"`
	AnesthesiaMethod      string                `json:"anesthesiaMethod"`
	SurgeryProcedure      string                `json:"surgeryProcedure"`
	Complications         string                `json:"complications"`
}

// DailyExam 术后每日查房
type DailyExam struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type PostOpCourse struct {
	DailyExams []DailyExam `json:"dailyExams"`
}

type MedicalHistory struct {
	PreOp   PreOpCourse   `json:"preOp"`
	IntraOp IntraOpReport `json:"intraOp"`
	PostOp  PostOpCourse  `json:"postOp"`
}

// PostOpRecord 术后病历
type PostOpRecord struct {
	ID                        string             `json:"id"`
	AdminDetails              AdminDetails       `json:"adminDetails"`
	ReasonForAdmission        string             `json:"reasonForAdmission"`
	MedicalHistory            MedicalHistory     `json:"medicalHistory"`
	SystemReview              string             `json:"systemReview"`
	PastHistory               PastHistory        `json:"pastHistory"`
	Examination               Examination        `json:"examination"`
	PostOpParaclinicalResults []ParaclinicalItem `json:"postOpParaclinicalResults"`
	Summary                   string             `json:"summary"`
	ClinicalDiscussion        string             `json:"clinicalDiscussion"`
	FinalDiagnosis            string             `json:"finalDiagnosis"`
	TreatmentPlan             string             `json:"treatmentPlan"`
}

func (r *PostOpRecord) Clone() *PostOpRecord {
	out := *r
	out.MedicalHistory.PreOp.PreOpParaclinical.Results = cloneItems(r.MedicalHistory.PreOp.PreOpParaclinical.Results)
	out.MedicalHistory.PostOp.DailyExams = append([]DailyExam(nil), r.MedicalHistory.PostOp.DailyExams...)
	out.PastHistory = r.PastHistory.Clone()
	out.Examination = r.Examination.Clone()
	out.PostOpParaclinicalResults = cloneItems(r.PostOpParaclinicalResults)
	return &out
}

func (r *PostOpRecord) CloneRecord() Record { return r.Clone() }
func (r *PostOpRecord) Admin() AdminDetails { return r.AdminDetails }
func (r *PostOpRecord) Exam() Examination   { return r.Examination }
