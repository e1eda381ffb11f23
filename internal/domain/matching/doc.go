// Package matching implements the deterministic weighted scorer used to rank
// mentor candidates against a free-text query and structured filters.
//
// Scoring is a pure function of a candidate and a query, so candidates can be
// scored concurrently; ranking happens only after every score is known and
// uses a stable sort, which keeps results reproducible when totals tie.
package matching
