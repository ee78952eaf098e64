// Package app wires the lab analyzer service together and manages its
// lifecycle.
//
// NewApplication opens the experiment database, initializes OpenTelemetry,
// creates the analysis service and the event hub, and builds the HTTP
// router. Serve runs the server together with the session janitor and the
// runtime metrics collector, and shuts everything down when its context ends.
//
//	a, err := app.NewApplication(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
package app
