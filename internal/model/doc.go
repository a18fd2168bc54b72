// Package model defines the core data structures used throughout SiteScan.
//
// This package contains the following main types:
//   - LinkCheckResult: The tagged classification of a single URL check
//   - Failure / FailureReport: Reportable problems accumulated across a run
//   - ModeResult: The outcome of one crawl mode (status check or deep crawl)
//   - RunReport: Everything collected while scanning one site
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, verify, audit, pipeline and report packages all
// need these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
