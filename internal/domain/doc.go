// Package domain models U.S. Census ACS talent-migration data for the 50
// states plus the District of Columbia.
//
// # Data Source
//
// All raw counts come from the Census Bureau Data API, ACS 5-Year Estimates
// (https://api.census.gov/data/{year}/acs/acs5), queried with for=state:*.
// Four detail tables are fetched per snapshot:
//
//	B07009  Geographic Mobility by Educational Attainment (current residence)
//	  _001E  total population 25+
//	  _025E  moved from different state: all education levels
//	  _029E  moved from different state: bachelor's degree
//	  _030E  moved from different state: graduate or professional degree
//
//	B07409  Geographic Mobility by Educational Attainment (residence 1 year ago)
//	  _025E  moved to different state: all education levels
//	  _029E  moved to different state: bachelor's degree
//	  _030E  moved to different state: graduate or professional degree
//	  Used as the out-migration proxy. It counts people whose prior-year
//	  address was in the state and who now live elsewhere; it is the best
//	  available mirror of B07009, not a perfect one.
//
//	B15003  Educational Attainment for Population 25+
//	  _001E  total population 25+
//	  _022E  bachelor's degree
//	  _023E  master's degree
//	  _024E  professional school degree
//	  _025E  doctorate degree
//
//	B20004  Median Earnings by Educational Attainment (population 25+)
//	  _001E  all workers
//	  _005E  bachelor's degree
//	  _006E  graduate or professional degree
//
// # Suppressed Cells
//
// The API encodes suppressed or non-applicable estimates as large negative
// sentinels (-666666666 and relatives) or literal null. Any negative or
// unparseable cell is treated as absent. Absent count fields exclude the
// state from the fetched table, so the inner join drops it; absent earnings
// leave the record in place with nil earnings fields.
//
// # Derived Metrics
//
//	net_migration        = in_educated − out_educated
//	migration_rate       = (in_educated + out_educated) / pop_25+ × 1000
//	talent_concentration = ba_plus_stock / pop_25+ × 100
//	brain_drain_signal   = out_educated / ba_plus_stock × 100
//
// Metrics with a zero denominator are nil, never zero or ±Inf, and the
// record is excluded from any median or ranking over that metric.
//
// # Policy Segments
//
// Each snapshot recomputes the median of net_migration and of
// talent_concentration over the classifiable records, then splits on both
// axes. At-median values count as high (>=, fixed convention):
//
//	high net / high concentration  Talent Hub
//	high net / low  concentration  Rising Gainer
//	low  net / high concentration  At-Risk Retainer
//	low  net / low  concentration  Brain Drain Risk
//
// Records with an undefined axis, and records reporting zero BA+ stock, are
// Unclassified and excluded from the medians. Medians belong to the
// snapshot, so one state's segment can change when another state's data does.
package domain
