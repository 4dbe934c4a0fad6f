package research

import "log/slog"

// FindingsValidator gates findings on structural completeness before
// synthesis. Content quality is out of scope; a finding passes when it
// carries provenance and at least one key point.
type FindingsValidator struct {
	log *slog.Logger
}

func NewFindingsValidator(logger *slog.Logger) *FindingsValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FindingsValidator{log: logger}
}

// Validate returns the findings that have metadata and a non-empty key point
// list, preserving order. The input slice is not modified.
func (v *FindingsValidator) Validate(findings []ContentFinding) []ContentFinding {
	valid := make([]ContentFinding, 0, len(findings))
	for _, f := range findings {
		if f.Metadata == nil || len(f.KeyPoints) == 0 {
			v.log.Warn("dropping incomplete finding", "source", f.Source,
				"has_metadata", f.Metadata != nil, "key_points", len(f.KeyPoints))
			continue
		}
		valid = append(valid, f)
	}
	v.log.Info("findings validated", "kept", len(valid), "dropped", len(findings)-len(valid))
	return valid
}
