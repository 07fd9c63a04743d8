package codec

import (
	"fmt"

	"github.com/khulafarming/yieldcast/internal/model"
)

// TargetColumns names the two regression targets in output order.
var TargetColumns = []string{model.ColYieldPerHectare, model.ColSuccessRating}

// Codec encodes feature records into model vectors and decodes scaled model
// outputs back into physical units. A Codec is only ever produced by Fit or
// by loading a persisted artifact set; it is read-only afterwards.
type Codec struct {
	Encoders map[string]*LabelEncoder
	Inputs   *StandardScaler
	Targets  *StandardScaler
}

// Fit builds the label encoders, the input scaler and the target scaler from
// training records.
func Fit(records []model.Record) (*Codec, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("cannot fit codec: no records")
	}

	labels := make(map[string][]string, len(model.CategoricalColumns))
	numeric := make([][]float64, len(records))
	targets := make([][]float64, len(records))

	for i, r := range records {
		for col, v := range r.Categorical() {
			labels[col] = append(labels[col], v)
		}
		n := r.Numeric()
		numeric[i] = n[:]
		targets[i] = []float64{r.YieldPerHectare, r.SuccessRating}
	}

	c := &Codec{Encoders: make(map[string]*LabelEncoder, len(model.CategoricalColumns))}
	for _, col := range model.CategoricalColumns {
		enc, err := FitLabelEncoder(col, labels[col])
		if err != nil {
			return nil, err
		}
		c.Encoders[col] = enc
	}

	var err error
	if c.Inputs, err = FitStandardScaler(model.NumericColumns[:], numeric); err != nil {
		return nil, fmt.Errorf("input scaler: %w", err)
	}
	if c.Targets, err = FitStandardScaler(TargetColumns, targets); err != nil {
		return nil, fmt.Errorf("target scaler: %w", err)
	}

	return c, nil
}

// Encode converts a feature record into the model's input vector.
func (c *Codec) Encode(r model.FeatureRecord) (model.FeatureVector, error) {
	var v model.FeatureVector

	numeric := r.Numeric()
	scaled, err := c.Inputs.Transform(numeric[:])
	if err != nil {
		return v, err
	}
	copy(v[:], scaled)

	cats := r.Categorical()
	for i, col := range model.CategoricalColumns {
		enc, ok := c.Encoders[col]
		if !ok {
			return v, fmt.Errorf("no encoder for column %s", col)
		}
		code, err := enc.Transform(cats[col])
		if err != nil {
			return v, err
		}
		v[len(model.NumericColumns)+i] = float64(code)
	}

	return v, nil
}

// EncodeTargets standardizes a (yield per hectare, success rating) pair.
func (c *Codec) EncodeTargets(yieldPerHectare, success float64) [model.TargetCount]float64 {
	vals := []float64{yieldPerHectare, success}
	// Shape is fixed by construction, so Transform cannot fail here.
	_, _ = c.Targets.Transform(vals)
	return [model.TargetCount]float64{vals[0], vals[1]}
}

// Decode recovers the physical yield per hectare and success rating from a
// scaled model output.
func (c *Codec) Decode(scaled [model.TargetCount]float64) (yieldPerHectare, success float64) {
	vals := []float64{scaled[0], scaled[1]}
	_, _ = c.Targets.InverseTransform(vals)
	return vals[0], vals[1]
}

// Validate checks that a loaded codec is complete and consistent with the
// feature layout.
func (c *Codec) Validate() error {
	if c == nil {
		return fmt.Errorf("codec is nil")
	}
	if c.Inputs == nil || c.Targets == nil {
		return fmt.Errorf("codec is missing a scaler")
	}
	if err := c.Inputs.validate(model.NumericColumns[:]); err != nil {
		return fmt.Errorf("input scaler: %w", err)
	}
	if err := c.Targets.validate(TargetColumns); err != nil {
		return fmt.Errorf("target scaler: %w", err)
	}
	for _, col := range model.CategoricalColumns {
		enc, ok := c.Encoders[col]
		if !ok || enc == nil {
			return fmt.Errorf("missing encoder for %s", col)
		}
		if enc.Column != col {
			return fmt.Errorf("encoder for %s is labeled %s", col, enc.Column)
		}
		if err := enc.validate(); err != nil {
			return err
		}
	}
	return nil
}
