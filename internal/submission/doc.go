// Package submission validates batch download requests and enqueues them as
// jobs.
//
// Encoder.Submit checks every parameter against a fixed table, authorizes
// the requested owners, allocates a filename, and inserts the job at the
// create stage. The response is one of the four plain-text results the web
// tier returns verbatim:
//
//	success: {base_url}/download/{filename}.{suffix}
//	error: forbidden
//	error: bad request - {reason}
//	error: internal server error
package submission
