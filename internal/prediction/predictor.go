package prediction

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/crowdvisual/crowdvisual-platform/internal/refdata"
)

// ModelInvoker is the external prediction collaborator: it accepts a
// scaled feature vector and returns one or more occupancy estimates.
type ModelInvoker interface {
	Predict(ctx context.Context, features []float64) ([]float64, error)
}

// Predictor wires the feature encoder, the scaler, and the external model
// into building-level and campus-wide prediction queries. The engine does
// not interpret the model's numbers beyond rounding for display.
type Predictor struct {
	encoder *Encoder
	scaler  *Scaler
	model   ModelInvoker
	tables  *refdata.Tables
	logger  *slog.Logger
}

// NewPredictor creates a predictor from its injected collaborators.
func NewPredictor(tables *refdata.Tables, scaler *Scaler, model ModelInvoker, logger *slog.Logger) (*Predictor, error) {
	encoder := NewEncoder(tables)
	if scaler.Size() != encoder.VectorSize() {
		return nil, fmt.Errorf("scaler fitted for %d features, encoder produces %d", scaler.Size(), encoder.VectorSize())
	}
	return &Predictor{
		encoder: encoder,
		scaler:  scaler,
		model:   model,
		tables:  tables,
		logger:  logger.With("component", "predictor"),
	}, nil
}

// Building predicts occupancy for one building, rounded to one decimal.
func (p *Predictor) Building(ctx context.Context, date time.Time, minuteOfDay int, building string) ([]float64, error) {
	values, err := p.predict(ctx, date, minuteOfDay, building)
	if err != nil {
		return nil, err
	}
	return roundAll(values, 1), nil
}

// CampusEstimate is one building's predicted occupancy in a campus-wide
// prediction sweep.
type CampusEstimate struct {
	Building    string              `json:"building"`
	Coordinates refdata.Coordinates `json:"coordinates"`
	Values      []float64           `json:"predicted_occupancy"`
}

// Campus predicts occupancy for every known building, in the reference
// tables' fixed order, rounded to two decimals.
func (p *Predictor) Campus(ctx context.Context, date time.Time, minuteOfDay int) ([]CampusEstimate, error) {
	estimates := make([]CampusEstimate, 0, p.tables.BuildingCount())
	for _, building := range p.tables.BuildingOrder() {
		values, err := p.predict(ctx, date, minuteOfDay, building)
		if err != nil {
			return nil, fmt.Errorf("predict %s: %w", building, err)
		}

		coords, _ := p.tables.Building(building)
		estimates = append(estimates, CampusEstimate{
			Building:    building,
			Coordinates: coords,
			Values:      roundAll(values, 2),
		})
	}
	return estimates, nil
}

func (p *Predictor) predict(ctx context.Context, date time.Time, minuteOfDay int, building string) ([]float64, error) {
	vector, err := p.encoder.Encode(date, minuteOfDay, building)
	if err != nil {
		return nil, err
	}

	scaled, err := p.scaler.Transform(vector)
	if err != nil {
		return nil, err
	}

	values, err := p.model.Predict(ctx, scaled)
	if err != nil {
		return nil, fmt.Errorf("invoke model: %w", err)
	}

	p.logger.Debug("model prediction",
		"building", building,
		"minute_of_day", minuteOfDay,
		"values", len(values))

	return values, nil
}

// roundAll rounds every value to the given number of decimal places.
func roundAll(values []float64, places int) []float64 {
	factor := math.Pow10(places)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Round(v*factor) / factor
	}
	return out
}
