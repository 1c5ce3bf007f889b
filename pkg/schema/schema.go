// Package schema defines the core types shared across the resolution
// engine: execution phases, source origin kinds, precedence classes, and
// the tool's own settings.
package schema

import (
	"fmt"
)

// Phase identifies the execution context a store and its registries belong
// to. Build-phase resolution runs without a persistent process (interpolation
// resolves against the project root); run-phase resolution has full
// filesystem and environment access.
type Phase int

const (
	PhaseBuild Phase = iota
	PhaseRun
)

func (p Phase) String() string {
	switch p {
	case PhaseBuild:
		return "build"
	case PhaseRun:
		return "run"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// OriginKind identifies where a source's JSON text came from.
type OriginKind int

const (
	// OriginJSON is a plain-JSON file read directly from disk.
	OriginJSON OriginKind = iota
	// OriginStructured is a structured document (CUE) translated to JSON by
	// the external translator.
	OriginStructured
	// OriginSecret is an encrypted document decrypted to JSON by the
	// external decryptor.
	OriginSecret
	// OriginEnvironment is a block of environment variables scanned under a
	// registered prefix.
	OriginEnvironment
)

func (k OriginKind) String() string {
	switch k {
	case OriginJSON:
		return "json"
	case OriginStructured:
		return "structured"
	case OriginSecret:
		return "secret"
	case OriginEnvironment:
		return "environment"
	default:
		return fmt.Sprintf("OriginKind(%d)", int(k))
	}
}

// ParseOriginKind converts the wire name of an origin kind back to its
// enum value.
func ParseOriginKind(s string) (OriginKind, error) {
	switch s {
	case "json":
		return OriginJSON, nil
	case "structured":
		return OriginStructured, nil
	case "secret":
		return OriginSecret, nil
	case "environment":
		return OriginEnvironment, nil
	default:
		return 0, fmt.Errorf("unknown origin kind %q", s)
	}
}

// Class is one of the eight precedence classes, totally ordered from lowest
// to highest precedence. A class combines a phase with an origin kind;
// run-phase classes always outrank build-phase classes, and within a phase
// the order is JSON < structured < secret < environment.
type Class int

const (
	ClassBuildJSON Class = iota
	ClassBuildStructured
	ClassBuildSecret
	ClassBuildEnv
	ClassRunJSON
	ClassRunStructured
	ClassRunSecret
	ClassRunEnv

	// ClassCount is the number of precedence classes.
	ClassCount
)

func (c Class) String() string {
	names := [...]string{
		"build-json", "build-structured", "build-secret", "build-env",
		"run-json", "run-structured", "run-secret", "run-env",
	}
	if c < 0 || int(c) >= len(names) {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return names[c]
}

// Phase returns the phase component of the class.
func (c Class) Phase() Phase {
	if c >= ClassRunJSON {
		return PhaseRun
	}
	return PhaseBuild
}

// Kind returns the origin-kind component of the class.
func (c Class) Kind() OriginKind {
	return OriginKind(int(c) % 4)
}

// ClassFor returns the precedence class for a phase and origin kind.
func ClassFor(phase Phase, kind OriginKind) Class {
	base := ClassBuildJSON
	if phase == PhaseRun {
		base = ClassRunJSON
	}
	return base + Class(kind)
}

// PhaseClasses returns the four classes belonging to a phase, lowest
// precedence first.
func PhaseClasses(phase Phase) []Class {
	if phase == PhaseRun {
		return []Class{ClassRunJSON, ClassRunStructured, ClassRunSecret, ClassRunEnv}
	}
	return []Class{ClassBuildJSON, ClassBuildStructured, ClassBuildSecret, ClassBuildEnv}
}
