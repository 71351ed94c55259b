package derive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"medig/internal/domain"
)

func TestBMI_StandardAdult(t *testing.T) {
	bmi, class := BMI("70", "175")
	assert.Equal(t, "22.86", bmi)
	assert.Equal(t, "Bình thường theo IDI & WPRO", class)
}

func TestBMI_Boundaries(t *testing.T) {
	cases := []struct {
		weight string
		want   string
		bmi    string
	}{
		{"18.49", "Nhẹ cân theo IDI & WPRO", "18.49"},
		{"18.5", "Bình thường theo IDI & WPRO", "18.50"},
		{"22.99", "Bình thường theo IDI & WPRO", "22.99"},
		{"23", "Thừa cân theo IDI & WPRO", "23.00"},
		{"24.99", "Thừa cân theo IDI & WPRO", "24.99"},
		{"25", "Béo phì độ I theo IDI & WPRO", "25.00"},
		{"29.99", "Béo phì độ I theo IDI & WPRO", "29.99"},
		{"30", "Béo phì độ II theo IDI & WPRO", "30.00"},
		// 取整后再分级
		{"18.496", "Bình thường theo IDI & WPRO", "18.50"},
	}
	for _, c := range cases {
		bmi, class := BMI(c.weight, "100")
		assert.Equal(t, c.bmi, bmi, "weight=%s", c.weight)
		assert.Equal(t, c.want, class, "weight=%s", c.weight)
	}
}

func TestBMI_InvalidInputsClearBoth(t *testing.T) {
	for _, in := range [][2]string{
		{"", "170"},
		{"60", ""},
		{"abc", "170"},
		{"60", "0"},
		{"60", "-170"},
		{"0", "170"},
		{"1e308", "1"},
		{"60", "1e-200"},
	} {
		bmi, class := BMI(in[0], in[1])
		assert.Empty(t, bmi, "%v", in)
		assert.Empty(t, class, "%v", in)
	}
}

func TestApplyBMI_ClearsStaleValues(t *testing.T) {
	v := domain.VitalSigns{Weight: "70", Height: "175"}
	ApplyBMI(&v)
	assert.Equal(t, "22.86", v.BMI)

	v.Height = ""
	ApplyBMI(&v)
	assert.Empty(t, v.BMI)
	assert.Empty(t, v.Classification)
}

func TestAge(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	age, ok := Age("1990", now)
	assert.True(t, ok)
	assert.Equal(t, 35, age)

	_, ok = Age("199x", now)
	assert.False(t, ok)
	assert.Equal(t, "", AgeText("", now))
	assert.Equal(t, "35", AgeText(" 1990 ", now))
}
