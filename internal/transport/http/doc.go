// Package http implements the HTTP API of the lab analyzer. Handlers are a
// thin layer over the analysis service: they decode and validate requests,
// call the service and render the result.
//
// # Routes
//
//	GET    /api/health
//	GET    /api/version
//	POST   /api/logs
//	GET    /api/experiments
//	GET    /api/experiments/{id}
//	POST   /api/sessions
//	GET    /api/sessions/{sessionID}
//	DELETE /api/sessions/{sessionID}
//	GET    /api/sessions/{sessionID}/dataset
//	POST   /api/sessions/{sessionID}/growth
//	POST   /api/sessions/{sessionID}/inhibition
//	GET    /api/sessions/{sessionID}/results
//	GET    /api/sessions/{sessionID}/statistics
//	GET    /api/sessions/{sessionID}/export.csv
//	GET    /api/sessions/{sessionID}/export.xlsx
//	GET    /api/sessions/{sessionID}/charts/{kind}.png
//	GET    /ws
//	GET    /metrics
//
// # Error Handling
//
// Every error is answered with RFC 7807 Problem Details through
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/analysis/no-control-group",
//	    "title": "No Control Group",
//	    "status": 422,
//	    "detail": "no control group found",
//	    "instance": "/api/sessions/5f0c.../inhibition",
//	    "trace_id": "..."
//	}
//
// Downloads are rendered into a buffer first so that a failed export is
// still reported as a problem response instead of a truncated file.
package http
