package stats

import "math"

const (
	BMIStatusUnderweight = "Underweight"
	BMIStatusNormal      = "Normal"
	BMIStatusOverweight  = "Overweight"
	BMIStatusObese       = "Obese"
)

// CalculateBMI returns the body mass index rounded to one decimal together
// with its classification.
func CalculateBMI(weightKg, heightCm float64) (float64, string) {
	if weightKg <= 0 || heightCm <= 0 {
		return 0, ""
	}

	heightM := heightCm / 100
	bmi := round1(weightKg / (heightM * heightM))

	switch {
	case bmi < 18.5:
		return bmi, BMIStatusUnderweight
	case bmi < 25:
		return bmi, BMIStatusNormal
	case bmi < 30:
		return bmi, BMIStatusOverweight
	default:
		return bmi, BMIStatusObese
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
