// Package services implements the business logic layer of the analyzer.
// It sits between the HTTP handlers and CLI on one side and the analysis
// core, repository and exporters on the other.
//
// # AnalysisService
//
// AnalysisService keeps analysis sessions keyed by a random UUID. Each
// session wraps one analysis.Session holding a loaded experiment and its
// latest growth/inhibition table:
//
//	info, err := svc.CreateSession(ctx, experimentID, "")
//	growth, err := svc.ComputeGrowth(ctx, info.ID, 0, 24)
//	report, err := svc.ComputeInhibition(ctx, info.ID)
//
// Calls against one session are serialized with a per-session mutex.
// Concurrent loads of the same experiment share a single repository query
// (singleflight), and ExportBundle renders its files concurrently (errgroup).
// Sessions idle for longer than the configured TTL are evicted by
// RunJanitor.
//
// Progress is reported as events.Event values to an EventPublisher, normally
// the WebSocket hub.
//
// # Error Handling
//
// Core errors from the analysis package pass through unchanged so the HTTP
// layer can map them to problem details. Unknown sessions return
// ErrSessionNotFound, which wraps errors.ErrNotFound.
//
// # Testing
//
// Services are tested by mocking dependencies:
//
//	store := &MockExperimentStore{}
//	store.On("LoadMeasurements", mock.Anything, int64(7)).Return(rows, nil)
package services
