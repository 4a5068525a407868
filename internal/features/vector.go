package features

import (
	"math"
	"time"
)

// Vector is one dense feature row keyed by (location, item, date). Every
// lag and rolling field is computed only from observations strictly before
// Date; a feature row never inspects its own day's demand.
type Vector struct {
	LocationID int64     `json:"location_id"`
	ItemID     string    `json:"item_id"`
	ItemName   string    `json:"item_name"`
	Date       time.Time `json:"date"`

	// Target. Zero for synthesized gap days.
	QuantitySold float64 `json:"quantity_sold"`
	UnitPrice    float64 `json:"unit_price"`

	// Calendar features.
	DayOfWeek  int     `json:"day_of_week"`
	DayOfMonth int     `json:"day_of_month"`
	Month      int     `json:"month"`
	Quarter    int     `json:"quarter"`
	WeekOfYear int     `json:"week_of_year"`
	DayOfYear  int     `json:"day_of_year"`
	Year       int     `json:"year"`
	Season     int     `json:"season"`
	IsWeekend  bool    `json:"is_weekend"`
	IsFriday   bool    `json:"is_friday"`
	IsMonday   bool    `json:"is_monday"`
	DowSin     float64 `json:"dow_sin"`
	DowCos     float64 `json:"dow_cos"`
	MonthSin   float64 `json:"month_sin"`
	MonthCos   float64 `json:"month_cos"`

	// Lag features at fixed offsets. HasLagN is false when the series is
	// too short; callers decide whether to drop or zero-fill.
	Lag1     float64 `json:"demand_lag_1d"`
	Lag7     float64 `json:"demand_lag_7d"`
	Lag14    float64 `json:"demand_lag_14d"`
	Lag28    float64 `json:"demand_lag_28d"`
	HasLag1  bool    `json:"-"`
	HasLag7  bool    `json:"-"`
	HasLag14 bool    `json:"-"`
	HasLag28 bool    `json:"-"`

	// Rolling features over a series shifted by one day.
	RollingMean7    float64 `json:"rolling_mean_7d"`
	RollingMean14   float64 `json:"rolling_mean_14d"`
	RollingMean30   float64 `json:"rolling_mean_30d"`
	RollingStd7     float64 `json:"rolling_std_7d"`
	RollingStd14    float64 `json:"rolling_std_14d"`
	SameWeekdayAvg4 float64 `json:"demand_same_weekday_avg_4weeks"`
	ExpandingMean   float64 `json:"expanding_mean"`

	// External regressors, advisory only. Zero when unavailable.
	TemperatureMax  float64 `json:"temperature_max"`
	TemperatureMin  float64 `json:"temperature_min"`
	PrecipitationMM float64 `json:"precipitation_mm"`
	IsRainy         bool    `json:"is_rainy"`
	IsHoliday       bool    `json:"is_holiday"`
	IsPromotion     bool    `json:"is_promotion_active"`
	DiscountPct     float64 `json:"discount_percentage"`
}

// HasFullLagHistory reports whether every fixed-offset lag was observable.
func (v *Vector) HasFullLagHistory() bool {
	return v.HasLag1 && v.HasLag7 && v.HasLag14 && v.HasLag28
}

// Regressors is the opaque advisory payload joined onto feature rows by
// date. Provided by an external signal source, never required.
type Regressors struct {
	TemperatureMax  float64
	TemperatureMin  float64
	PrecipitationMM float64
	IsRainy         bool
	IsHoliday       bool
	IsPromotion     bool
	DiscountPct     float64
}

// season maps a month to 0=winter, 1=spring, 2=summer, 3=fall.
func season(month time.Month) int {
	switch month {
	case time.December, time.January, time.February:
		return 0
	case time.March, time.April, time.May:
		return 1
	case time.June, time.July, time.August:
		return 2
	default:
		return 3
	}
}

// fillCalendar populates the calendar fields for the vector's date,
// including cyclical encodings so Sunday and Monday stay numerically
// adjacent for the tree models.
func (v *Vector) fillCalendar() {
	d := v.Date
	// time.Weekday counts Sunday=0; demand features use Monday=0.
	dow := (int(d.Weekday()) + 6) % 7
	_, isoWeek := d.ISOWeek()

	v.DayOfWeek = dow
	v.DayOfMonth = d.Day()
	v.Month = int(d.Month())
	v.Quarter = (int(d.Month())-1)/3 + 1
	v.WeekOfYear = isoWeek
	v.DayOfYear = d.YearDay()
	v.Year = d.Year()
	v.Season = season(d.Month())
	v.IsWeekend = dow == 5 || dow == 6
	v.IsFriday = dow == 4
	v.IsMonday = dow == 0
	v.DowSin = math.Sin(2 * math.Pi * float64(dow) / 7)
	v.DowCos = math.Cos(2 * math.Pi * float64(dow) / 7)
	v.MonthSin = math.Sin(2 * math.Pi * float64(v.Month) / 12)
	v.MonthCos = math.Cos(2 * math.Pi * float64(v.Month) / 12)
}
