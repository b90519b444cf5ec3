package services

import (
	"math"
	"time"

	"github.com/terraincognita07/flowcast/internal/models"
)

const (
	PredictionHistoryLimit = 6
	LutealPhaseDays        = 14
	FertileWindowLeadDays  = 5
	ProjectedPeriodDays    = 5
	ProjectedPeriodCount   = 3

	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"

	PhaseMenstrual  = "menstrual"
	PhaseFollicular = "follicular"
	PhaseOvulation  = "ovulation"
	PhaseLuteal     = "luteal"

	mediumConfidenceMaxStdDeviation = 3
	lowConfidenceStdDeviation       = 5
	minConfidentHistory             = 3
)

type Prediction struct {
	AvgCycleLength int
	Confidence     string
	// StdDeviation is nil when the prediction fell back to the user default.
	StdDeviation *float64
}

type CycleState struct {
	Day       int
	RawDay    int
	Phase     string
	StartedOn time.Time
}

type FertileWindow struct {
	Start time.Time
	End   time.Time
}

type ForwardPrediction struct {
	NextPeriodDate time.Time
	OvulationDate  time.Time
	FertileWindow  FertileWindow
}

type ProjectedPeriod struct {
	Start time.Time
	End   time.Time
}

// ComputeAverageAndConfidence expects cycle lengths most recent first and
// uses at most the PredictionHistoryLimit newest of them.
func ComputeAverageAndConfidence(recentLengths []int, userDefault int) Prediction {
	lengths := headInts(recentLengths, PredictionHistoryLimit)
	if len(lengths) == 0 {
		return Prediction{AvgCycleLength: userDefault, Confidence: ConfidenceLow}
	}

	avg := RoundCycleLength(averageInts(lengths))

	var squaredDeviations float64
	for _, length := range lengths {
		deviation := float64(length - avg)
		squaredDeviations += deviation * deviation
	}
	stdDeviation := math.Sqrt(squaredDeviations / float64(len(lengths)))

	confidence := ConfidenceHigh
	if stdDeviation > mediumConfidenceMaxStdDeviation {
		confidence = ConfidenceMedium
	}
	if stdDeviation > lowConfidenceStdDeviation || len(lengths) < minConfidentHistory {
		confidence = ConfidenceLow
	}

	return Prediction{
		AvgCycleLength: avg,
		Confidence:     confidence,
		StdDeviation:   &stdDeviation,
	}
}

// RoundCycleLength rounds half away from zero.
func RoundCycleLength(value float64) int {
	return int(math.Round(value))
}

// ComputeCurrentCycleState reports the cycle day of today relative to the
// last period start. The displayed day never exceeds avgCycleLength and never
// drops below 1; the phase follows the unclamped day.
func ComputeCurrentCycleState(lastPeriodStart time.Time, today time.Time, avgCycleLength int) CycleState {
	rawDay := DaysBetween(lastPeriodStart, today) + 1

	day := rawDay
	if day < 1 {
		day = 1
	}
	phase := PhaseForCycleDay(day)
	if avgCycleLength > 0 && day > avgCycleLength {
		day = avgCycleLength
	}

	return CycleState{
		Day:       day,
		RawDay:    rawDay,
		Phase:     phase,
		StartedOn: CalendarDate(lastPeriodStart),
	}
}

// PhaseForCycleDay uses fixed boundaries independent of cycle length.
func PhaseForCycleDay(day int) string {
	switch {
	case day <= 5:
		return PhaseMenstrual
	case day <= 13:
		return PhaseFollicular
	case day <= 16:
		return PhaseOvulation
	default:
		return PhaseLuteal
	}
}

func ComputeForwardPredictions(lastPeriodStart time.Time, avgCycleLength int) ForwardPrediction {
	ovulation := AddDays(lastPeriodStart, avgCycleLength-LutealPhaseDays)
	return ForwardPrediction{
		NextPeriodDate: AddDays(lastPeriodStart, avgCycleLength),
		OvulationDate:  ovulation,
		FertileWindow: FertileWindow{
			Start: AddDays(ovulation, -FertileWindowLeadDays),
			End:   ovulation,
		},
	}
}

// ProjectPeriods projects count future periods; period i starts
// avgCycleLength*i days after lastPeriodStart.
func ProjectPeriods(lastPeriodStart time.Time, avgCycleLength int, count int) []ProjectedPeriod {
	if count <= 0 || avgCycleLength <= 0 {
		return nil
	}

	periods := make([]ProjectedPeriod, 0, count)
	for i := 1; i <= count; i++ {
		start := AddDays(lastPeriodStart, avgCycleLength*i)
		periods = append(periods, ProjectedPeriod{
			Start: start,
			End:   AddDays(start, ProjectedPeriodDays),
		})
	}
	return periods
}

// BackfillCycleLength is the cycle length written onto the record that
// precedes a newly logged period.
func BackfillCycleLength(newStart time.Time, previousStart time.Time) int {
	return DaysBetween(previousStart, newStart)
}

// RecentCycleLengths keeps the order of records and skips open cycles.
func RecentCycleLengths(records []models.CycleRecord) []int {
	lengths := make([]int, 0, len(records))
	for _, record := range records {
		if record.CycleLength != nil {
			lengths = append(lengths, *record.CycleLength)
		}
	}
	return lengths
}

func headInts(values []int, n int) []int {
	if len(values) <= n {
		return values
	}
	return values[:n]
}

func averageInts(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	var total int
	for _, value := range values {
		total += value
	}
	return float64(total) / float64(len(values))
}
