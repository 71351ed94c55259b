// Package derive 派生值计算：年龄、BMI 及 IDI & WPRO 分级
package derive

import (
	"math"
	"strconv"
	"strings"
	"time"

	"medig/internal/domain"
)

// BMI 分级阈值（IDI & WPRO，亚太标准），按顺序首个命中
var bmiBands = []struct {
	below float64
	label string
}{
	{18.5, "Nhẹ cân"},
	{23, "Bình thường"},
	{25, "Thừa cân"},
	{30, "Béo phì độ I"},
}

const (
	obeseII     = "Béo phì độ II"
	classSuffix = " theo IDI & WPRO"
)

// Age 当前年份减出生年份；出生年份不是整数时返回 false
func Age(birthYear string, now time.Time) (int, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(birthYear))
	if err != nil {
		return 0, false
	}
	return now.Year() - y, true
}

// AgeText 年龄文本，无效时为空串
func AgeText(birthYear string, now time.Time) string {
	age, ok := Age(birthYear, now)
	if !ok {
		return ""
	}
	return strconv.Itoa(age)
}

func parsePositive(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

// BMI 计算体重指数（两位小数）及分级；任一输入无效时两者均为空
func BMI(weight, height string) (bmi string, classification string) {
	w, ok := parsePositive(weight)
	if !ok {
		return "", ""
	}
	h, ok := parsePositive(height)
	if !ok {
		return "", ""
	}
	m := h / 100
	rounded := math.Round(w/(m*m)*100) / 100
	if math.IsInf(rounded, 0) || math.IsNaN(rounded) {
		return "", ""
	}
	return strconv.FormatFloat(rounded, 'f', 2, 64), Classify(rounded)
}

// Classify 按已取整的 BMI 分级
func Classify(bmi float64) string {
	for _, b := range bmiBands {
		if bmi < b.below {
			return b.label + classSuffix
		}
	}
	return obeseII + classSuffix
}

// ApplyBMI 根据身高体重重算 vitals 中的派生字段
func ApplyBMI(v *domain.VitalSigns) {
	v.BMI, v.Classification = BMI(v.Weight, v.Height)
}
