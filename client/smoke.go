package client

import (
	"context"
	"fmt"
	"net/http"

	"fukuyama-landprice/models"
)

// SampleRequests are the three parcels exercised by the smoke test.
func SampleRequests() []models.PredictionRequest {
	mk := func(area float64, age int, typ string) models.PredictionRequest {
		return models.PredictionRequest{
			DistrictName: "曙町",
			Area:         &area,
			BuildingYear: &age,
			PropertyType: &typ,
		}
	}
	return []models.PredictionRequest{
		mk(100, 5, "宅地(土地と建物)"),
		mk(200, 0, "宅地(土地)"),
		mk(50, 20, "中古マンション等"),
	}
}

// SmokeReport summarises a smoke run.
type SmokeReport struct {
	Passed   int
	Total    int
	Failures []string
}

// OK reports whether every check passed.
func (r SmokeReport) OK() bool { return r.Passed == r.Total }

// RunSmoke exercises every endpoint of a running server and logs the results.
func (c *Client) RunSmoke(ctx context.Context) SmokeReport {
	checks := []struct {
		name string
		run  func(context.Context) error
	}{
		{"health", c.checkHealth},
		{"districts", c.checkDistricts},
		{"property_types", c.checkPropertyTypes},
		{"predict", c.checkPredict},
	}

	report := SmokeReport{Total: len(checks)}
	for _, chk := range checks {
		if err := chk.run(ctx); err != nil {
			c.logger.Error("[smoke] %s: %v", chk.name, err)
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", chk.name, err))
			continue
		}
		c.logger.Info("[smoke] %s: ok", chk.name)
		report.Passed++
	}
	c.logger.Info("[smoke] Passed %d/%d", report.Passed, report.Total)
	return report
}

func (c *Client) checkHealth(ctx context.Context) error {
	code, body, err := c.Health(ctx)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("status %d: %v", code, body)
	}
	c.logger.Info("[smoke] health: %v", body)
	return nil
}

func (c *Client) checkDistricts(ctx context.Context) error {
	list, err := c.Districts(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("[smoke] %d districts, first: %v", len(list), list[:min(5, len(list))])
	return nil
}

func (c *Client) checkPropertyTypes(ctx context.Context) error {
	list, err := c.PropertyTypes(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("[smoke] %d property types: %v", len(list), list)
	return nil
}

func (c *Client) checkPredict(ctx context.Context) error {
	for i, req := range SampleRequests() {
		res, err := c.Predict(ctx, "/predict", req)
		if err != nil {
			return fmt.Errorf("case %d: %w", i+1, err)
		}
		c.logger.Info("[smoke] case %d: %s %.0f㎡ age %d → %d円 (%s)",
			i+1, req.DistrictName, *req.Area, *req.BuildingYear, res.PredictedPrice, res.Confidence)
	}
	return nil
}
