// Package timeseries aggregates hourly observation files into daily or
// monthly mean series.
//
// # Input format
//
// The first line ends with ":<H>", where H is the 1-indexed line holding the
// whitespace-separated column names. Data rows follow until the last line,
// which is always discarded as the trailing blank:
//
//	number_of_header_lines: 3
//	# free-form metadata
//	site year month day hour value qcflag
//	MLO 2020 01 01 00 411.23 ...
//	MLO 2020 01 01 01 -999.99 *..
//
// The schema is discovered at read time; year, month, day, value and qcflag
// must be present.
//
// # Filtering and grouping
//
// Rows are kept when qcflag is "..." and value is neither 0 nor -999. The
// kept values are grouped by (year, month, day) or (year, month) and averaged;
// each mean is rounded to two decimals and stamped at UTC midnight of the
// day, or of the 1st for monthly groups. Output is ascending by date.
//
// # Errors
//
// Failures are *Error values with a Kind. At the boundary they collapse into
// two tiers: KindNotFound, and everything else:
//
//	points, err := timeseries.New().Aggregate(ctx, "co2_mlo_hourly.txt", timeseries.Daily)
//	if timeseries.IsNotFound(err) {
//	    // missing input
//	}
package timeseries
