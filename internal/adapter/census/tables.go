package census

import (
	"context"

	"github.com/policymetrics/talent-flow-etl/internal/domain"
)

// ACS variable codes per table. The trailing E marks an estimate column.
const (
	varName = "NAME"

	inflowPop       = "B07009_001E"
	inflowTotal     = "B07009_025E"
	inflowBachelors = "B07009_029E"
	inflowGraduate  = "B07009_030E"

	outflowTotal     = "B07409_025E"
	outflowBachelors = "B07409_029E"
	outflowGraduate  = "B07409_030E"

	stockTotal        = "B15003_001E"
	stockBachelors    = "B15003_022E"
	stockMasters      = "B15003_023E"
	stockProfessional = "B15003_024E"
	stockDoctorate    = "B15003_025E"

	earningsAll       = "B20004_001E"
	earningsBachelors = "B20004_005E"
	earningsGraduate  = "B20004_006E"
)

// FetchMobilityInflow retrieves B07009. States with a suppressed count cell
// are omitted from the result, which the pipeline's inner join then drops.
func (c *Client) FetchMobilityInflow(ctx context.Context) (map[string]domain.MobilityInflow, error) {
	rows, err := c.query(ctx, "b07009", []string{varName, inflowPop, inflowTotal, inflowBachelors, inflowGraduate})
	if err != nil {
		return nil, err
	}

	result := make(map[string]domain.MobilityInflow, len(rows))
	for fips, r := range rows {
		pop, ok1 := parseCount(r, inflowPop)
		total, ok2 := parseCount(r, inflowTotal)
		bachelors, ok3 := parseCount(r, inflowBachelors)
		graduate, ok4 := parseCount(r, inflowGraduate)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			c.logger.Warn("dropping state with suppressed inflow cells", "fips", fips)
			continue
		}
		result[fips] = domain.MobilityInflow{
			StateName:   parseName(r, fips),
			Pop25Plus:   pop,
			TotalMovers: total,
			Bachelors:   bachelors,
			Graduate:    graduate,
		}
	}
	return result, nil
}

// FetchMobilityOutflow retrieves B07409, the out-migration proxy.
func (c *Client) FetchMobilityOutflow(ctx context.Context) (map[string]domain.MobilityOutflow, error) {
	rows, err := c.query(ctx, "b07409", []string{varName, outflowTotal, outflowBachelors, outflowGraduate})
	if err != nil {
		return nil, err
	}

	result := make(map[string]domain.MobilityOutflow, len(rows))
	for fips, r := range rows {
		total, ok1 := parseCount(r, outflowTotal)
		bachelors, ok2 := parseCount(r, outflowBachelors)
		graduate, ok3 := parseCount(r, outflowGraduate)
		if !ok1 || !ok2 || !ok3 {
			c.logger.Warn("dropping state with suppressed outflow cells", "fips", fips)
			continue
		}
		result[fips] = domain.MobilityOutflow{
			StateName:   parseName(r, fips),
			TotalMovers: total,
			Bachelors:   bachelors,
			Graduate:    graduate,
		}
	}
	return result, nil
}

// FetchEducationStock retrieves B15003.
func (c *Client) FetchEducationStock(ctx context.Context) (map[string]domain.EducationStock, error) {
	rows, err := c.query(ctx, "b15003", []string{varName, stockTotal, stockBachelors, stockMasters, stockProfessional, stockDoctorate})
	if err != nil {
		return nil, err
	}

	result := make(map[string]domain.EducationStock, len(rows))
	for fips, r := range rows {
		total, ok1 := parseCount(r, stockTotal)
		bachelors, ok2 := parseCount(r, stockBachelors)
		masters, ok3 := parseCount(r, stockMasters)
		professional, ok4 := parseCount(r, stockProfessional)
		doctorate, ok5 := parseCount(r, stockDoctorate)
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			c.logger.Warn("dropping state with suppressed education cells", "fips", fips)
			continue
		}
		result[fips] = domain.EducationStock{
			StateName:    parseName(r, fips),
			Total25Plus:  total,
			Bachelors:    bachelors,
			Masters:      masters,
			Professional: professional,
			Doctorate:    doctorate,
		}
	}
	return result, nil
}

// FetchEarnings retrieves B20004. Earnings cells are frequently suppressed
// in sparse geographies; suppression here keeps the state in the table with
// nil fields instead of dropping it.
func (c *Client) FetchEarnings(ctx context.Context) (map[string]domain.Earnings, error) {
	rows, err := c.query(ctx, "b20004", []string{varName, earningsAll, earningsBachelors, earningsGraduate})
	if err != nil {
		return nil, err
	}

	result := make(map[string]domain.Earnings, len(rows))
	for fips, r := range rows {
		result[fips] = domain.Earnings{
			StateName:  parseName(r, fips),
			AllWorkers: parseOptional(r, earningsAll),
			Bachelors:  parseOptional(r, earningsBachelors),
			Graduate:   parseOptional(r, earningsGraduate),
		}
	}
	return result, nil
}
