// Package stddb provides the external definition database: declarative
// records describing constants the analyzed code never defines itself
// (Ruby core and stdlib classes). Records are generated offline; this
// package only reads them.
package stddb

// ParamKind mirrors the method parameter categories the interpreter models.
type ParamKind string

const (
	ParamRequired ParamKind = "req"
	ParamOptional ParamKind = "opt"
	ParamRest     ParamKind = "rest"
	ParamBlock    ParamKind = "block"
	ParamKeyword  ParamKind = "kwopt"
)

type Param struct {
	Name string
	Kind ParamKind
}

type Method struct {
	Name       string
	Parameters []Param
	// ReturnType is a constant name, empty when unknown.
	ReturnType string
}

// Record is the declarative bundle for one fully qualified constant.
type Record struct {
	Name    string
	Module  bool
	Parents []string

	InstanceMethods  []Method
	SingletonMethods []Method

	// Constants lists fully qualified nested constants (e.g. "Float::MAX").
	Constants []string
}

// Source looks up records by fully qualified constant name. Absence is
// (nil, nil); errors are real I/O or database failures.
type Source interface {
	Lookup(name string) (*Record, error)
	Close() error
}

// Multi consults sources in order and returns the first hit.
type Multi []Source

func (m Multi) Lookup(name string) (*Record, error) {
	for _, s := range m {
		rec, err := s.Lookup(name)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}
	return nil, nil
}

func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
