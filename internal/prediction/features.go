// Package prediction builds the fixed-layout feature vectors consumed by
// the external occupancy model and standardizes them with the training
// pipeline's scaler parameters. Invoking the model itself is an external
// collaborator (pkg/model); this package only encodes and rounds.
package prediction

import (
	"errors"
	"fmt"
	"time"

	"github.com/crowdvisual/crowdvisual-platform/internal/refdata"
)

// Epoch is the first day of the model's training range. Feature day
// arithmetic is relative to this date; earlier query dates are rejected.
var Epoch = time.Date(2021, time.March, 9, 0, 0, 0, 0, time.UTC)

// ErrDateBeforeEpoch is returned when a prediction query's date precedes
// the model's training epoch.
var ErrDateBeforeEpoch = errors.New("date precedes model epoch")

// Encoder builds feature vectors whose one-hot tail follows the reference
// tables' fixed building order, matching the model's trained input layout.
type Encoder struct {
	tables *refdata.Tables
	epoch  time.Time
}

// NewEncoder creates an encoder against the given reference tables.
func NewEncoder(tables *refdata.Tables) *Encoder {
	return &Encoder{tables: tables, epoch: Epoch}
}

// Features is the decomposed calendar portion of a feature vector,
// exposed for logging and tests.
type Features struct {
	HourOfDay   int
	DayOfWeek   int
	MinuteOfDay int
	FutureDay   int
	WeekOfYear  int
	IsWeekend   int
}

// Calendar computes the calendar features for a target date.
func (e *Encoder) Calendar(date time.Time, minuteOfDay int) (Features, error) {
	futureDay := int(date.Sub(e.epoch).Hours() / 24)
	if futureDay < 0 {
		return Features{}, fmt.Errorf("%w: %s", ErrDateBeforeEpoch, date.Format("2006-01-02"))
	}

	dayOfWeek := futureDay % 7
	f := Features{
		HourOfDay:   minuteOfDay / 60,
		DayOfWeek:   dayOfWeek,
		MinuteOfDay: minuteOfDay,
		FutureDay:   futureDay,
		WeekOfYear:  futureDay/7 + 1,
		IsWeekend:   0,
	}
	if dayOfWeek >= 5 {
		f.IsWeekend = 1
	}
	return f, nil
}

// Encode builds the full feature vector for one building:
// [hour_of_day, day_of_week, minute_of_day, future_day, week_of_year,
// is_weekend, one_hot...]. The order is load-bearing; it must match the
// input order the external model was trained with.
func (e *Encoder) Encode(date time.Time, minuteOfDay int, building string) ([]float64, error) {
	if !e.tables.HasBuilding(building) {
		return nil, fmt.Errorf("%w: %s", refdata.ErrUnknownBuilding, building)
	}

	f, err := e.Calendar(date, minuteOfDay)
	if err != nil {
		return nil, err
	}

	order := e.tables.BuildingOrder()
	vector := make([]float64, 0, 6+len(order))
	vector = append(vector,
		float64(f.HourOfDay),
		float64(f.DayOfWeek),
		float64(f.MinuteOfDay),
		float64(f.FutureDay),
		float64(f.WeekOfYear),
		float64(f.IsWeekend),
	)
	for _, code := range order {
		if code == building {
			vector = append(vector, 1)
		} else {
			vector = append(vector, 0)
		}
	}
	return vector, nil
}

// VectorSize returns the expected feature vector length.
func (e *Encoder) VectorSize() int {
	return 6 + e.tables.BuildingCount()
}
