package controller

import "strings"

// StatusKind drives the colour of the status line.
type StatusKind int

const (
	StatusNeutral StatusKind = iota
	StatusSuccess
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "neutral"
	}
}

// ClassifyStatus derives the kind from the message prefix alone.
func ClassifyStatus(status string) StatusKind {
	switch {
	case strings.HasPrefix(status, "Error"):
		return StatusError
	case strings.HasPrefix(status, "Success"):
		return StatusSuccess
	default:
		return StatusNeutral
	}
}

// Fixed status lines.
const (
	StatusReady          = "Ready"
	StatusInputSelected  = "Input file selected"
	StatusOutputSelected = "Output file selected"
	StatusCompressing    = "Compressing..."
	NoFileSelected       = "No file selected"
)
