package importer

import (
	"fmt"
	"strings"
)

// Variant selects which post-import pipeline runs
type Variant int

const (
	Simple Variant = iota
	Processed
	ProcessedEmissive
)

// String returns the label used in import reports
func (v Variant) String() string {
	switch v {
	case Simple:
		return "Simple"
	case Processed:
		return "Processed"
	case ProcessedEmissive:
		return "Emission"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Prefix returns the group name prefix for the variant
func (v Variant) Prefix() string {
	return "SVG_" + v.String() + "_"
}

// Preprocesses reports whether the variant runs the preprocessor
func (v Variant) Preprocesses() bool {
	return v == Processed || v == ProcessedEmissive
}

// Emissive reports whether the variant sets up objects and canonicalizes materials
func (v Variant) Emissive() bool {
	return v == ProcessedEmissive
}

// ParseVariant parses a variant name as used on the command line and in config files
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple":
		return Simple, nil
	case "processed":
		return Processed, nil
	case "emission", "emissive", "processed-emissive", "processedemissive":
		return ProcessedEmissive, nil
	}
	return Simple, fmt.Errorf("unknown import variant: %q", s)
}

// Invocation tells how the source path was obtained
type Invocation int

const (
	Direct Invocation = iota
	DialogSelected
)

// State is a step of the import pipeline
type State int

const (
	Idle State = iota
	Selecting
	Validating
	Preprocessing
	Importing
	PostProcessing
	Done
	Failed
)

var stateNames = map[State]string{
	Idle:           "Idle",
	Selecting:      "Selecting",
	Validating:     "Validating",
	Preprocessing:  "Preprocessing",
	Importing:      "Importing",
	PostProcessing: "PostProcessing",
	Done:           "Done",
	Failed:         "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}
