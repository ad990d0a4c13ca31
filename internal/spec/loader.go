package spec

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Error codes shared by the loader and validator.
const (
	ErrCodeNotFound       = "E001" // spec file missing
	ErrCodeParse          = "E002" // YAML parse failure
	ErrCodeCircularImport = "E003" // import cycle
	ErrCodeUnknownRef     = "E101" // dangling schema/entity/event reference
	ErrCodeBadGenerator   = "E102" // unknown or malformed generator
	ErrCodeBadFilter      = "E103" // filter references undefined state attribute
	ErrCodeBadScenario    = "E104" // scenario step references undefined event type
	ErrCodeBadOutput      = "E105" // malformed output configuration
	ErrCodeRefCycle       = "E106" // $ref cycle in the schema graph
	ErrCodeBadExpression  = "E107" // derived expression outside the grammar
)

// LoadError is a structured specification error with a stable code.
type LoadError struct {
	Code    string
	Path    string // file path or document path ("event_types.UserRegistered")
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads the spec at path, resolves and deep-merges its imports, and
// validates the merged document.
func Load(path string) (*Document, error) {
	doc, err := loadMerged(path, nil)
	if err != nil {
		return nil, err
	}
	if errs := Validate(doc); len(errs) > 0 {
		return nil, errs[0]
	}
	return doc, nil
}

// LoadUnvalidated reads and merges without validating. Used by the
// validate CLI command, which wants every error, not just the first.
func LoadUnvalidated(path string) (*Document, error) {
	return loadMerged(path, nil)
}

// loadMerged loads one file and recursively merges its imports.
// Imported definitions land first; the importing file wins on name
// conflicts. The chain tracks the in-progress import stack for cycle
// detection.
func loadMerged(path string, chain []string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}
	for _, seen := range chain {
		if seen == abs {
			return nil, &LoadError{
				Code:    ErrCodeCircularImport,
				Path:    path,
				Message: fmt.Sprintf("circular import via %s", filepath.Base(abs)),
			}
		}
	}
	chain = append(chain, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}
	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}

	if len(doc.Imports) == 0 {
		return doc, nil
	}

	merged := &Document{}
	for _, imp := range doc.Imports {
		impPath := imp
		if !filepath.IsAbs(impPath) {
			impPath = filepath.Join(filepath.Dir(abs), impPath)
		}
		impDoc, err := loadMerged(impPath, chain)
		if err != nil {
			return nil, err
		}
		mergeInto(merged, impDoc)
	}
	mergeInto(merged, doc)
	merged.Imports = nil
	return merged, nil
}

// mergeInto overlays src onto dst. Named definitions replace same-named
// earlier ones in place; new definitions append in src order. Scalars and
// settings are taken from src when set.
func mergeInto(dst, src *Document) {
	if src.Version != "" {
		dst.Version = src.Version
	}
	mergeSettings(&dst.SimulationSettings, &src.SimulationSettings)
	for _, s := range src.Schemas {
		replaced := false
		for i := range dst.Schemas {
			if dst.Schemas[i].Name == s.Name {
				dst.Schemas[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			dst.Schemas = append(dst.Schemas, s)
		}
	}
	for _, e := range src.Entities {
		replaced := false
		for i := range dst.Entities {
			if dst.Entities[i].Name == e.Name {
				dst.Entities[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			dst.Entities = append(dst.Entities, e)
		}
	}
	for _, et := range src.EventTypes {
		replaced := false
		for i := range dst.EventTypes {
			if dst.EventTypes[i].Name == et.Name {
				dst.EventTypes[i] = et
				replaced = true
				break
			}
		}
		if !replaced {
			dst.EventTypes = append(dst.EventTypes, et)
		}
	}
	for _, sc := range src.Scenarios {
		replaced := false
		for i := range dst.Scenarios {
			if dst.Scenarios[i].Name == sc.Name {
				dst.Scenarios[i] = sc
				replaced = true
				break
			}
		}
		if !replaced {
			dst.Scenarios = append(dst.Scenarios, sc)
		}
	}
	// Outputs are positional, not named: the importing file's outputs
	// replace the imported ones entirely when present.
	if len(src.Outputs) > 0 {
		dst.Outputs = src.Outputs
	}
}

func mergeSettings(dst, src *SimulationSettings) {
	if src.Duration != "" {
		dst.Duration = src.Duration
	}
	if src.TotalEvents != nil {
		dst.TotalEvents = src.TotalEvents
	}
	if len(src.InitialEntityCounts) > 0 {
		dst.InitialEntityCounts = src.InitialEntityCounts
	}
	if src.TimeProgression.StartTime != "" {
		dst.TimeProgression.StartTime = src.TimeProgression.StartTime
	}
	if src.TimeProgression.TimeMultiplier != 0 {
		dst.TimeProgression.TimeMultiplier = src.TimeProgression.TimeMultiplier
	}
	if src.RandomSeed != nil {
		dst.RandomSeed = src.RandomSeed
	}
}
