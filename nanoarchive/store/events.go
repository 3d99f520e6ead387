package store

import "fmt"

// EventKind classifies something observable that happened in a DirectoryStore.
type EventKind int

const (
	EventDirectoryCreated EventKind = iota
	EventDirectoryCreateFailed
	EventWritten
	EventWriteFailed
	EventMalformed
	EventReadFailed
	EventDeleted
	EventDeleteFailed
	EventTreeRemoved
	EventTreeRemoveFailed
)

var eventNames = map[EventKind]string{
	EventDirectoryCreated:      "directory_created",
	EventDirectoryCreateFailed: "directory_create_failed",
	EventWritten:               "written",
	EventWriteFailed:           "write_failed",
	EventMalformed:             "malformed",
	EventReadFailed:            "read_failed",
	EventDeleted:               "deleted",
	EventDeleteFailed:          "delete_failed",
	EventTreeRemoved:           "tree_removed",
	EventTreeRemoveFailed:      "tree_remove_failed",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Failed reports whether the event describes a failure.
func (k EventKind) Failed() bool {
	switch k {
	case EventDirectoryCreateFailed, EventWriteFailed, EventMalformed,
		EventReadFailed, EventDeleteFailed, EventTreeRemoveFailed:
		return true
	}
	return false
}

// Event is delivered to the hook installed with WithEventHook. Err is set
// for failure events.
type Event struct {
	Kind EventKind
	Path string
	Err  error
}

// EventHook receives events synchronously, on the goroutine performing the
// operation. Hooks must not call back into the same store.
type EventHook func(Event)
