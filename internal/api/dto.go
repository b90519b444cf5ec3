package api

import (
	"time"

	"github.com/terraincognita07/flowcast/internal/models"
	"github.com/terraincognita07/flowcast/internal/services"
)

type userResponse struct {
	UserID              string    `json:"user_id"`
	Email               string    `json:"email"`
	FirstName           string    `json:"first_name"`
	DateOfBirth         *string   `json:"date_of_birth"`
	AvgCycleLength      int       `json:"avg_cycle_length"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	SubscriptionTier    string    `json:"subscription_tier"`
	CreatedAt           time.Time `json:"created_at"`
}

type cycleRecordResponse struct {
	RecordID        string    `json:"record_id"`
	PeriodStartDate string    `json:"period_start_date"`
	PeriodEndDate   *string   `json:"period_end_date"`
	CycleLength     *int      `json:"cycle_length"`
	FlowIntensity   *string   `json:"flow_intensity"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type moodLogResponse struct {
	LogID         string    `json:"log_id"`
	LogDate       string    `json:"log_date"`
	Mood          *string   `json:"mood"`
	EnergyLevel   *int      `json:"energy_level"`
	Symptoms      []string  `json:"symptoms"`
	FlowIntensity string    `json:"flow_intensity"`
	Notes         string    `json:"notes"`
	IsPrivate     bool      `json:"is_private"`
	CreatedAt     time.Time `json:"created_at"`
}

type fertileWindowResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type predictionsResponse struct {
	NextPeriodDate string                `json:"next_period_date"`
	OvulationDate  string                `json:"ovulation_date"`
	FertileWindow  fertileWindowResponse `json:"fertile_window"`
	AvgCycleLength int                   `json:"avg_cycle_length"`
	Confidence     string                `json:"confidence"`
	StdDeviation   *float64              `json:"std_deviation,omitempty"`
}

type currentCycleResponse struct {
	Day       int    `json:"day"`
	Phase     string `json:"phase"`
	StartedOn string `json:"started_on"`
}

type calendarDayResponse struct {
	Date          string  `json:"date"`
	HasPeriod     bool    `json:"has_period"`
	FlowIntensity *string `json:"flow_intensity"`
	HasMoodLog    bool    `json:"has_mood_log"`
	Mood          *string `json:"mood"`
	EnergyLevel   *int    `json:"energy_level"`
	SymptomsCount int     `json:"symptoms_count"`
	IsPredicted   bool    `json:"is_predicted"`
	IsFertile     bool    `json:"is_fertile"`
	IsOvulation   bool    `json:"is_ovulation"`
	IsToday       bool    `json:"is_today"`
}

type projectedPeriodResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type symptomCountResponse struct {
	Symptom string `json:"symptom"`
	Count   int    `json:"count"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		UserID:              user.ID,
		Email:               user.Email,
		FirstName:           user.FirstName,
		DateOfBirth:         formatOptionalDate(user.DateOfBirth),
		AvgCycleLength:      user.AvgCycleLength,
		OnboardingCompleted: user.OnboardingCompleted,
		SubscriptionTier:    user.SubscriptionTier,
		CreatedAt:           user.CreatedAt,
	}
}

func newCycleRecordResponse(record models.CycleRecord) cycleRecordResponse {
	return cycleRecordResponse{
		RecordID:        record.ID,
		PeriodStartDate: services.FormatCalendarDate(record.PeriodStartDate),
		PeriodEndDate:   formatOptionalDate(record.PeriodEndDate),
		CycleLength:     record.CycleLength,
		FlowIntensity:   record.FlowIntensity,
		Notes:           record.Notes,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

func newCycleRecordResponses(records []models.CycleRecord) []cycleRecordResponse {
	result := make([]cycleRecordResponse, 0, len(records))
	for _, record := range records {
		result = append(result, newCycleRecordResponse(record))
	}
	return result
}

func newMoodLogResponse(entry models.MoodLog) moodLogResponse {
	symptoms := []string(entry.Symptoms)
	if symptoms == nil {
		symptoms = []string{}
	}
	return moodLogResponse{
		LogID:         entry.ID,
		LogDate:       services.FormatCalendarDate(entry.LogDate),
		Mood:          entry.Mood,
		EnergyLevel:   entry.EnergyLevel,
		Symptoms:      symptoms,
		FlowIntensity: entry.FlowIntensity,
		Notes:         entry.Notes,
		IsPrivate:     entry.IsPrivate,
		CreatedAt:     entry.CreatedAt,
	}
}

func newMoodLogResponses(entries []models.MoodLog) []moodLogResponse {
	result := make([]moodLogResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, newMoodLogResponse(entry))
	}
	return result
}

func newPredictionsResponse(forecast services.Forecast) predictionsResponse {
	return predictionsResponse{
		NextPeriodDate: services.FormatCalendarDate(forecast.Forward.NextPeriodDate),
		OvulationDate:  services.FormatCalendarDate(forecast.Forward.OvulationDate),
		FertileWindow: fertileWindowResponse{
			Start: services.FormatCalendarDate(forecast.Forward.FertileWindow.Start),
			End:   services.FormatCalendarDate(forecast.Forward.FertileWindow.End),
		},
		AvgCycleLength: forecast.Prediction.AvgCycleLength,
		Confidence:     forecast.Prediction.Confidence,
		StdDeviation:   forecast.Prediction.StdDeviation,
	}
}

func newCurrentCycleResponse(state services.CycleState) currentCycleResponse {
	return currentCycleResponse{
		Day:       state.Day,
		Phase:     state.Phase,
		StartedOn: services.FormatCalendarDate(state.StartedOn),
	}
}

func newCalendarDayResponses(days []services.CalendarDay) []calendarDayResponse {
	result := make([]calendarDayResponse, 0, len(days))
	for _, day := range days {
		result = append(result, calendarDayResponse{
			Date:          services.FormatCalendarDate(day.Date),
			HasPeriod:     day.HasPeriod,
			FlowIntensity: day.FlowIntensity,
			HasMoodLog:    day.HasMoodLog,
			Mood:          day.Mood,
			EnergyLevel:   day.EnergyLevel,
			SymptomsCount: day.SymptomsCount,
			IsPredicted:   day.IsPredicted,
			IsFertile:     day.IsFertile,
			IsOvulation:   day.IsOvulation,
			IsToday:       day.IsToday,
		})
	}
	return result
}

func newProjectedPeriodResponses(periods []services.ProjectedPeriod) []projectedPeriodResponse {
	result := make([]projectedPeriodResponse, 0, len(periods))
	for _, period := range periods {
		result = append(result, projectedPeriodResponse{
			StartDate: services.FormatCalendarDate(period.Start),
			EndDate:   services.FormatCalendarDate(period.End),
		})
	}
	return result
}

func formatOptionalDate(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := services.FormatCalendarDate(*value)
	return &formatted
}
