package ml

import (
	"encoding/json"
	"fmt"
)

// Model kinds stored in the persisted envelope.
const (
	KindLinear           = "linear"
	KindRidge            = "ridge"
	KindLasso            = "lasso"
	KindRandomForest     = "random_forest"
	KindGradientBoosting = "gradient_boosting"
	KindTree             = "tree"
)

type envelope struct {
	Kind  string          `json:"kind"`
	Model json.RawMessage `json:"model"`
}

// KindOf returns the persisted kind of m.
func KindOf(m Regressor) (string, error) {
	switch m.(type) {
	case *LinearRegression:
		return KindLinear, nil
	case *Ridge:
		return KindRidge, nil
	case *Lasso:
		return KindLasso, nil
	case *RandomForest:
		return KindRandomForest, nil
	case *GradientBoosting:
		return KindGradientBoosting, nil
	case *RegressionTree:
		return KindTree, nil
	default:
		return "", fmt.Errorf("ml: unsupported model type %T", m)
	}
}

// MarshalModel encodes a fitted model together with its kind.
func MarshalModel(m Regressor) ([]byte, error) {
	kind, err := KindOf(m)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("ml: marshal %s: %w", kind, err)
	}
	return json.Marshal(envelope{Kind: kind, Model: body})
}

// UnmarshalModel decodes a model written by MarshalModel.
func UnmarshalModel(data []byte) (Regressor, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("ml: decode envelope: %w", err)
	}

	var m Regressor
	switch env.Kind {
	case KindLinear:
		m = &LinearRegression{}
	case KindRidge:
		m = &Ridge{}
	case KindLasso:
		m = &Lasso{}
	case KindRandomForest:
		m = &RandomForest{}
	case KindGradientBoosting:
		m = &GradientBoosting{}
	case KindTree:
		m = &RegressionTree{}
	default:
		return nil, fmt.Errorf("ml: unknown model kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Model, m); err != nil {
		return nil, fmt.Errorf("ml: decode %s: %w", env.Kind, err)
	}
	return m, nil
}
