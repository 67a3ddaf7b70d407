package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. tick_committed).
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRunID identifies a single tick.
	FieldRunID = "run_id"
	// FieldState is the coordinator state a line was emitted from.
	FieldState = "state"
	// FieldFile is the normalized name of the file a line refers to.
	FieldFile = "file"
	// FieldRemoteID is the remote identifier of the file a line refers to.
	FieldRemoteID = "remote_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
