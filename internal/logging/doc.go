// Package logging wires log/slog with the handlers and field conventions used
// across miosub: a console handler for interactive runs, a JSON handler for
// machine consumption, and context-derived fields (run id, chunk, stage) so
// every pipeline log line carries its provenance.
package logging
