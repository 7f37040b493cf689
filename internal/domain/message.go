package domain

// Color tags a notification by outcome.
type Color string

const (
	ColorRed   Color = "ff0000"
	ColorGreen Color = "00dd1f"
	ColorGray  Color = "a0a0a0"
)

// Attribution names who a notification is sent on behalf of.
type Attribution struct {
	Name    string
	URL     string
	IconURL string
}

// Field is a named value rendered alongside the message.
type Field struct {
	Name  string
	Value string
}

// Message is the structured payload handed to notification sinks.
type Message struct {
	Title       string
	Description string
	Color       Color
	URL         string
	Author      *Attribution
	Fields      []Field
}
