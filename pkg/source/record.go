package source

import (
	"github.com/WaywardWizard/cuenim/pkg/schema"

	errUtils "github.com/WaywardWizard/cuenim/errors"
)

// Record is the flat, text-only projection of a Source used to carry
// resolved configuration across the build/run phase boundary. Exactly one
// of Path/Prefix is populated depending on Kind.
type Record struct {
	Kind          string `json:"kind"`
	Path          string `json:"path,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	RawText       string `json:"raw_text"`
}

// MarshalRecord projects the source into its serialized form. Secret-kind
// sources must never cross the phase boundary; serializing one is a hard
// error.
func (s *Source) MarshalRecord() (Record, error) {
	if s.kind == schema.OriginSecret {
		return Record{}, errUtils.Wrapf(errUtils.ErrSerialization, "source %s", s.Name())
	}

	r := Record{
		Kind:    s.kind.String(),
		RawText: s.rawText,
	}
	if s.kind == schema.OriginEnvironment {
		r.Prefix = s.prefix
		r.CaseSensitive = s.caseSensitive
	} else {
		r.Path = s.path
	}
	return r, nil
}

// FromRecord reconstitutes a source from its serialized projection.
func FromRecord(r Record) (*Source, error) {
	kind, err := schema.ParseOriginKind(r.Kind)
	if err != nil {
		return nil, errUtils.Wrap(errUtils.ErrLoad, err.Error())
	}
	if kind == schema.OriginSecret {
		return nil, errUtils.Wrapf(errUtils.ErrSerialization, "record for %s", r.Path)
	}

	if kind == schema.OriginEnvironment {
		var doc map[string]any
		if err := json.UnmarshalFromString(r.RawText, &doc); err != nil {
			return nil, errUtils.Wrapf(errUtils.ErrLoad,
				"record for prefix %s: invalid JSON: %v", r.Prefix, err)
		}
		return &Source{
			kind:          kind,
			prefix:        r.Prefix,
			caseSensitive: r.CaseSensitive,
			rawText:       r.RawText,
			value:         doc,
		}, nil
	}

	return FromFile(kind, r.Path, []byte(r.RawText))
}
