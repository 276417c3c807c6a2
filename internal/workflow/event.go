package workflow

// EventType classifies progress events emitted by a streaming run.
type EventType int

const (
	// EventTypeStage marks entry into a stage.
	EventTypeStage EventType = iota
	// EventTypeStep reports a finished plan step and its output.
	EventTypeStep
	// EventTypeText carries a partial chunk of the synthesized answer.
	EventTypeText
	// EventTypeError reports a run-level failure.
	EventTypeError
	// EventTypeComplete is the final event and carries the Result.
	EventTypeComplete
)

// Event is emitted through the channel returned by Engine.Stream.
type Event struct {
	Type EventType

	// Stage is set for EventTypeStage.
	Stage string

	// Step and StepOutput are set for EventTypeStep. Step is 1-based.
	Step       int
	StepOutput string

	// TextChunk is set for EventTypeText.
	TextChunk string

	// Err is set for EventTypeError.
	Err error

	// Result is set for EventTypeComplete.
	Result *Result
}
