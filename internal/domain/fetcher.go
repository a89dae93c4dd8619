package domain

import "context"

// TableFetcher supplies the four raw ACS tables, each keyed by state FIPS
// code. Implementations must surface fetch failures (network error, API
// error, missing variable) as errors rather than returning partial tables.
type TableFetcher interface {
	// FetchMobilityInflow retrieves table B07009 (in-migration).
	FetchMobilityInflow(ctx context.Context) (map[string]MobilityInflow, error)

	// FetchMobilityOutflow retrieves table B07409 (out-migration proxy).
	FetchMobilityOutflow(ctx context.Context) (map[string]MobilityOutflow, error)

	// FetchEducationStock retrieves table B15003 (degree-holder stock).
	FetchEducationStock(ctx context.Context) (map[string]EducationStock, error)

	// FetchEarnings retrieves table B20004 (median earnings).
	FetchEarnings(ctx context.Context) (map[string]Earnings, error)
}
