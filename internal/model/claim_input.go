package model

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// 校验边界
const (
	MinLecturerNameLength = 2
	MaxLecturerNameLength = 100
	MaxHoursWorked        = 100
	MaxHourlyRate         = 500
	MaxTotalAmount        = 50000
	MaxNotesLength        = 500
	TotalAmountTolerance  = 0.01
)

// ClaimInput 提交报销单的原始字段
type ClaimInput struct {
	LecturerName string
	HoursWorked  float64
	HourlyRate   float64
	// TotalAmount 可选,提供时必须与 hours × rate 一致
	TotalAmount *float64
	Notes       string
	FileName    string
	FilePath    string
}

// Normalize 去除首尾空白
func (in *ClaimInput) Normalize() {
	in.LecturerName = strings.TrimSpace(in.LecturerName)
	in.Notes = strings.TrimSpace(in.Notes)
}

// Validate 校验输入,一次返回所有违反的约束
func (in *ClaimInput) Validate() error {
	verr := &ValidationError{}

	name := strings.TrimSpace(in.LecturerName)
	nameLen := utf8.RuneCountInString(name)
	switch {
	case name == "":
		verr.Add("lecturer_name", CodeRequired, "lecturer name is required")
	case nameLen < MinLecturerNameLength:
		verr.Add("lecturer_name", CodeTooShort,
			fmt.Sprintf("lecturer name must be between %d and %d characters", MinLecturerNameLength, MaxLecturerNameLength))
	case nameLen > MaxLecturerNameLength:
		verr.Add("lecturer_name", CodeTooLong,
			fmt.Sprintf("lecturer name must be between %d and %d characters", MinLecturerNameLength, MaxLecturerNameLength))
	}

	hoursOK := false
	switch {
	case math.IsNaN(in.HoursWorked) || in.HoursWorked <= 0:
		verr.Add("hours_worked", CodeMustBePositive, "hours worked must be greater than 0")
	case in.HoursWorked > MaxHoursWorked:
		verr.Add("hours_worked", CodeOutOfRange, fmt.Sprintf("hours worked cannot exceed %d hours per claim", MaxHoursWorked))
	default:
		hoursOK = true
	}

	rateOK := false
	switch {
	case math.IsNaN(in.HourlyRate) || in.HourlyRate <= 0:
		verr.Add("hourly_rate", CodeMustBePositive, "hourly rate must be greater than 0")
	case in.HourlyRate > MaxHourlyRate:
		verr.Add("hourly_rate", CodeOutOfRange, fmt.Sprintf("hourly rate cannot exceed %d per hour", MaxHourlyRate))
	default:
		rateOK = true
	}

	if in.TotalAmount != nil && *in.TotalAmount != 0 {
		total := *in.TotalAmount
		switch {
		case math.IsNaN(total) || total < 0:
			verr.Add("total_amount", CodeMustBePositive, "total amount must be greater than 0")
		case total > MaxTotalAmount:
			verr.Add("total_amount", CodeOutOfRange, fmt.Sprintf("total amount cannot exceed %d per claim", MaxTotalAmount))
		}
		if hoursOK && rateOK {
			calculated := ComputeTotal(in.HoursWorked, in.HourlyRate)
			// 按十进制比较误差
			diff := decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(calculated)).Abs()
			if diff.GreaterThan(decimal.NewFromFloat(TotalAmountTolerance)) {
				verr.Add("total_amount", CodeInconsistentTotal,
					fmt.Sprintf("calculated amount (%.2f) doesn't match provided total (%.2f)", calculated, total))
			}
		}
	}

	if utf8.RuneCountInString(in.Notes) > MaxNotesLength {
		verr.Add("notes", CodeTooLong, fmt.Sprintf("notes cannot exceed %d characters", MaxNotesLength))
	}

	return verr.OrNil()
}
