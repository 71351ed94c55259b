// Package prompt 构造发往 AI 代理的提示词，不做任何网络调用
package prompt

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"medig/internal/derive"
	"medig/internal/domain"
)

var ErrUnsupportedTask = errors.New("unsupported task for variant")

// Task 叙述字段生成任务
type Task string

const (
	TaskSummary                Task = "SUMMARY"
	TaskProblem                Task = "PROBLEM"
	TaskPrelimDiagnosis        Task = "PRELIM_DIAGNOSIS"
	TaskDiffDiagnosis          Task = "DIFF_DIAGNOSIS"
	TaskClinicalDiscussion     Task = "CLINICAL_DISCUSSION"
	TaskParaclinicalRequests   Task = "PARACLINICAL_REQUESTS"
	TaskParaclinicalDiscussion Task = "PARACLINICAL_DISCUSSION"
	TaskFinalDiagnosis         Task = "FINAL_DIAGNOSIS"
	TaskTreatmentPlan          Task = "TREATMENT_PLAN"
)

// taskSpec 任务对应的目标字段与提示词模板
type taskSpec struct {
	field string
	build func(c *buildContext) string
}

type buildContext struct {
	context string
	gender  string
	age     string
	patient *domain.PatientRecord
	postOp  *domain.PostOpRecord
	now     time.Time
}

var patientTasks = []Task{
	TaskSummary, TaskProblem, TaskPrelimDiagnosis, TaskDiffDiagnosis, TaskClinicalDiscussion,
	TaskParaclinicalRequests, TaskParaclinicalDiscussion, TaskFinalDiagnosis, TaskTreatmentPlan,
}

var postOpTasks = []Task{TaskSummary, TaskClinicalDiscussion, TaskFinalDiagnosis, TaskTreatmentPlan}

var patientSpecs = map[Task]taskSpec{
	TaskSummary: {field: "summary", build: func(c *buildContext) string {
		return lines(
			"Dữ liệu bệnh án:",
			c.context,
			"",
			"Nhiệm vụ: Bạn là một nhà tổng hợp thông tin, hãy tổng hợp thông tin bệnh án theo mẫu sau. Yêu cầu: trả lời ngắn gọn, cô đọng nhất có thể, không nói thêm gì khác, không nói lời thừa, không dùng kí tự lạ.",
			fmt.Sprintf("- Bệnh nhân %s %s tuổi, nhập viện vì %s , qua hỏi bệnh và thăm khám ghi nhận:", c.gender, c.age, c.patient.ReasonForAdmission),
			"+ Triệu chứng cơ năng: <những gì bệnh nhân khai là bất thường>",
			"+ Triệu chứng thực thể: <những gì khám được cho thấy là bất thường hoặc không thoảng đáng với người bình thường>",
			"+ Tiền căn: <Những tiền căn bệnh lý của bệnh nhân>",
		)
	}},
	TaskProblem: {field: "problemList", build: func(c *buildContext) string {
		data := c.context
		if c.patient.Summary != "" {
			data = "Tóm tắt bệnh án: " + c.patient.Summary
		}
		return lines(
			"Dữ liệu tóm tắt bệnh án và khám lâm sàng:",
			data,
			"",
			"Nhiệm vụ: Bạn là một bác sĩ chuyên khoa nhiều kinh nghiệm. Hãy liệt kê các vấn đề của bệnh nhân một cách ngắn gọn nhất có thể, ưu tiên gom thành hội chứng. Không giải thích, không nói lời thừa, không dùng kí tự lạ.",
		)
	}},
	TaskPrelimDiagnosis: {field: "preliminaryDiagnosis", build: func(c *buildContext) string {
		return lines(
			"Các vấn đề của bệnh nhân: "+c.patient.ProblemList,
			"Thông tin lâm sàng khác: "+c.context,
			"",
			"Nhiệm vụ: Bạn là một bác sĩ chuyên khoa nhiều kinh nghiệm, hãy đưa ra 1 chẩn đoán duy nhất phù hợp nhất. Không giải thích, không nói lời thừa, không dùng kí tự lạ.",
		)
	}},
	TaskDiffDiagnosis: {field: "differentialDiagnosis", build: func(c *buildContext) string {
		return lines(
			"Chẩn đoán sơ bộ: "+c.patient.PreliminaryDiagnosis,
			"Các vấn đề của bệnh nhân: "+c.patient.ProblemList,
			"Thông tin lâm sàng: "+c.context,
			"",
			"Nhiệm vụ: Bạn là một bác sĩ chuyên khoa nhiều kinh nghiệm, hãy liệt kê các chẩn đoán phân biệt khác. Không giải thích, không nói lời thừa, không dùng kí tự lạ.",
		)
	}},
	TaskClinicalDiscussion: {field: "clinicalDiscussion", build: func(c *buildContext) string {
		return lines(
			"Chẩn đoán sơ bộ: "+c.patient.PreliminaryDiagnosis,
			"Chẩn đoán phân biệt: "+c.patient.DifferentialDiagnosis,
			"Tóm tắt bệnh án: "+c.patient.Summary,
			"",
			"Nhiệm vụ: Bạn là một bác sĩ chuyên khoa nhiều kinh nghiệm, hãy biện luận ngắn gọn, tập trung vào các điểm chính để bảo vệ chẩn đoán sơ bộ và loại trừ chẩn đoán phân biệt. Không dài dòng, không nói lời thừa, không dùng kí tự lạ.",
		)
	}},
	TaskParaclinicalRequests: {field: "paraclinicalRequests", build: func(c *buildContext) string {
		return lines(
			"Dữ liệu bệnh án:",
			c.context,
			"",
			"Nhiệm vụ: Bạn là một bác sĩ chuyên khoa nhiều kinh nghiệm. Dựa vào dữ liệu, hãy đề xuất danh sách cận lâm sàng cần thiết. Trả lời ngắn gọn, chỉ liệt kê, không giải thích, không dùng kí tự lạ.",
		)
	}},
	TaskParaclinicalDiscussion: {field: "paraclinicalDiscussion", build: func(c *buildContext) string {
		return lines(
			"Kết quả cận lâm sàng:",
			SerializeParaclinical(c.patient.ParaclinicalResults),
			"",
			"Thông tin lâm sàng: "+c.context,
			"",
			"Nhiệm vụ: Bạn là một bác sĩ chuyên khoa nhiều kinh nghiệm. Biện luận ngắn gọn các kết quả cận lâm sàng bất thường. Trình bày: Tên CLS bất thường: (Biện luận). Không nói thừa, không dùng kí tự lạ.",
		)
	}},
	TaskFinalDiagnosis: {field: "finalDiagnosis", build: func(c *buildContext) string {
		return lines(
			"Biện luận lâm sàng: "+c.patient.ClinicalDiscussion,
			"Biện luận cận lâm sàng: "+c.patient.ParaclinicalDiscussion,
			"Chẩn đoán sơ bộ: "+c.patient.PreliminaryDiagnosis,
			"",
			"Nhiệm vụ: Bạn là một bác sĩ chuyên khoa nhiều kinh nghiệm. Từ tất cả dữ liệu, hãy đưa ra 1 chẩn đoán xác định cuối cùng. Trả lời cực kỳ ngắn gọn, không giải thích, không dùng kí tự lạ.",
		)
	}},
	TaskTreatmentPlan: {field: "treatmentPlan", build: func(c *buildContext) string {
		return lines(
			"Dữ liệu bệnh án:",
			c.context,
			"Chẩn đoán xác định: "+c.patient.FinalDiagnosis,
			"",
			"Nhiệm vụ: Bạn là một chuyên gia lâm sàng. Đề xuất các hướng xử trí cho ca này dưới dạng gạch đầu dòng. Yêu cầu: ngắn gọn, đi thẳng vào vấn đề, không giải thích, không nói lời thừa, không dùng kí tự lạ.",
		)
	}},
}

var postOpSpecs = map[Task]taskSpec{
	TaskSummary: {field: "summary", build: func(c *buildContext) string {
		mh := c.postOp.MedicalHistory
		return lines(
			"Dữ liệu bệnh án hậu phẫu:",
			c.context,
			"",
			"Nhiệm vụ: Bạn là một nhà tổng hợp thông tin, hãy tóm tắt bệnh án hậu phẫu theo mẫu sau. Yêu cầu: trả lời ngắn gọn, cô đọng nhất có thể, không nói thêm gì khác, không nói lời thừa, không dùng kí tự lạ.",
			fmt.Sprintf("- Bệnh nhân %s %s tuổi, hậu phẫu ngày thứ %d phẫu thuật [%s] vì [%s], qua hỏi bệnh và thăm khám ghi nhận:",
				c.gender, c.age, PostOpDay(c.postOp, c.now), mh.IntraOp.SurgeryMethod, mh.PreOp.PreOpDiagnosis.Diagnosis),
			"+ Triệu chứng cơ năng hiện tại: <những triệu chứng bệnh nhân khai sau mổ>",
			"+ Triệu chứng thực thể hiện tại: <những gì khám được sau mổ>",
			"+ Tóm tắt quá trình mổ và hậu phẫu: <diễn tiến chính>",
			"+ Tiền căn: <Những tiền căn bệnh lý của bệnh nhân>",
		)
	}},
	TaskClinicalDiscussion: {field: "clinicalDiscussion", build: func(c *buildContext) string {
		return lines(
			"Dữ liệu bệnh án hậu phẫu:",
			c.context,
			"",
			"Nhiệm vụ: Bạn là một bác sĩ chuyên khoa nhiều kinh nghiệm. Biện luận lâm sàng ngắn gọn dựa trên toàn bộ quá trình bệnh lý, tập trung vào vấn đề hiện tại. Không dài dòng, không nói lời thừa, không dùng kí tự lạ.",
		)
	}},
	TaskFinalDiagnosis: {field: "finalDiagnosis", build: func(c *buildContext) string {
		return lines(
			"Dữ liệu bệnh án hậu phẫu:",
			c.context,
			"Biện luận lâm sàng: "+c.postOp.ClinicalDiscussion,
			"",
			"Nhiệm vụ: Bạn là một bác sĩ chuyên khoa nhiều kinh nghiệm. Dựa trên dữ liệu, đưa ra 1 chẩn đoán xác định cuối cùng (bao gồm tình trạng hậu phẫu). Trả lời cực kỳ ngắn gọn, không giải thích, không dùng kí tự lạ.",
		)
	}},
	TaskTreatmentPlan: {field: "treatmentPlan", build: func(c *buildContext) string {
		return lines(
			"Dữ liệu bệnh án hậu phẫu:",
			c.context,
			"Chẩn đoán xác định: "+c.postOp.FinalDiagnosis,
			"",
			"Nhiệm vụ: Bạn là một chuyên gia lâm sàng. Đề xuất các hướng xử trí (thuốc, chăm sóc, dinh dưỡng,...) dưới dạng gạch đầu dòng. Yêu cầu: ngắn gọn, đi thẳng vào vấn đề, không giải thích, không nói lời thừa, không dùng kí tự lạ.",
		)
	}},
}

func lines(parts ...string) string { return strings.Join(parts, "\n") }

// TasksFor 该病历类型支持的任务（按表单顺序）
func TasksFor(v domain.Variant) []Task {
	if v == domain.VariantPostOp {
		return append([]Task(nil), postOpTasks...)
	}
	if v.Valid() {
		return append([]Task(nil), patientTasks...)
	}
	return nil
}

func specFor(v domain.Variant, task Task) (taskSpec, error) {
	specs := patientSpecs
	if v == domain.VariantPostOp {
		specs = postOpSpecs
	}
	spec, ok := specs[task]
	if !ok || !v.Valid() {
		return taskSpec{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedTask, v, task)
	}
	return spec, nil
}

// TargetField 任务结果写入的记录路径
func TargetField(v domain.Variant, task Task) (string, error) {
	spec, err := specFor(v, task)
	if err != nil {
		return "", err
	}
	return spec.field, nil
}

// BuildPrompt 生成任务提示词
func BuildPrompt(rec domain.Record, v domain.Variant, task Task, now time.Time) (string, error) {
	spec, err := specFor(v, task)
	if err != nil {
		return "", err
	}
	if !v.Accepts(rec) {
		return "", fmt.Errorf("%w: %T as %s", ErrUnsupportedTask, rec, v)
	}
	ctx, err := SerializeRecord(rec, now)
	if err != nil {
		return "", err
	}
	admin := rec.Admin()
	c := &buildContext{
		context: ctx,
		gender:  string(admin.Gender),
		age:     derive.AgeText(admin.BirthYear, now),
		now:     now,
	}
	switch r := rec.(type) {
	case *domain.PatientRecord:
		c.patient = r
	case *domain.PostOpRecord:
		c.postOp = r
	}
	return spec.build(c), nil
}

const dateLayout = "02/01/2006"

// PostOpDay 手术开始日期到病历日期的天数（向上取整）；日期缺失或无效时以 now 代替
func PostOpDay(r *domain.PostOpRecord, now time.Time) int {
	loc := now.Location()
	parse := func(s string) time.Time {
		if t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc); err == nil {
			return t
		}
		return now
	}
	surgery := parse(r.MedicalHistory.IntraOp.StartDate)
	report := parse(r.AdminDetails.ReportDate)
	return int(math.Ceil(report.Sub(surgery).Hours() / 24))
}
