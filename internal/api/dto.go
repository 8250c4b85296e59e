package api

// listEntry is one element of the streamed /list response. The wire
// shape matches the edit page's expectations: {"type":"dir"|"file",
// "name":<path>}.
type listEntry struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Failure message bodies on the file-management surface.
const (
	msgBadArgs = "BAD ARGS"
	msgBadPath = "BAD PATH"
	msgNotDir  = "NOT DIR"
)
