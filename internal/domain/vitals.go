package domain

// VitalSigns 生命体征（Sinh hiệu）
// 所有值均为操作员录入的字符串；BMI/Classification 只由派生计算写入
type VitalSigns struct {
	Pulse          string `json:"pulse"`  // Mạch (l/p)
	Temp           string `json:"temp"`   // Nhiệt độ (°C)
	BP1            string `json:"bp1"`    // Huyết áp tâm thu (mmHg)
	BP2            string `json:"bp2"`    // Huyết áp tâm trương (mmHg)
	Resp           string `json:"resp"`   // Nhịp thở (l/p)
	SpO2           string `json:"spo2"`   // SpO2 (%)
	Weight         string `json:"weight"` // Cân nặng (kg)
	Height         string `json:"height"` // Chiều cao (cm)
	BMI            string `json:"bmi"`
	Classification string `json:"classification"` // IDI & WPRO
}

// HasBody 身高体重是否都已录入
func (v VitalSigns) HasBody() bool {
	return v.Weight != "" && v.Height != ""
}
