// Package predict holds the prediction form catalogues (field names, labels,
// input steps and presets), caller-side validation of raw form values, and
// the top feature-influence ranking shown next to each result.
//
// Service ties them to the API client: values are parsed first, and a blank
// or non-numeric field fails with *ValidationError before any request is sent.
package predict
