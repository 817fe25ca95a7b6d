package stddb

import (
	_ "embed"
	"sync"

	"github.com/BurntSushi/toml"

	"rubyscope/internal/core/errors"
)

//go:embed core.toml
var coreData string

type tomlMethod struct {
	Name   string   `toml:"name"`
	Params []string `toml:"params"`
	Return string   `toml:"return"`
}

type tomlConstant struct {
	Name             string       `toml:"name"`
	Module           bool         `toml:"module"`
	Parents          []string     `toml:"parents"`
	Constants        []string     `toml:"constants"`
	InstanceMethods  []tomlMethod `toml:"instance_methods"`
	SingletonMethods []tomlMethod `toml:"singleton_methods"`
}

type tomlDataset struct {
	Constants []tomlConstant `toml:"constants"`
}

// CoreSource serves the embedded Ruby core dataset. Decoding happens once
// on first lookup.
type CoreSource struct {
	once    sync.Once
	err     error
	records map[string]*Record
}

func NewCoreSource() *CoreSource {
	return &CoreSource{}
}

func (c *CoreSource) Lookup(name string) (*Record, error) {
	c.once.Do(c.load)
	if c.err != nil {
		return nil, c.err
	}
	return c.records[name], nil
}

func (c *CoreSource) Close() error { return nil }

func (c *CoreSource) load() {
	var ds tomlDataset
	if _, err := toml.Decode(coreData, &ds); err != nil {
		c.err = errors.Wrap(err, errors.CodeDatabase, "decode embedded core dataset")
		return
	}
	c.records = make(map[string]*Record, len(ds.Constants))
	for _, tc := range ds.Constants {
		rec := &Record{
			Name:      tc.Name,
			Module:    tc.Module,
			Parents:   tc.Parents,
			Constants: tc.Constants,
		}
		for _, m := range tc.InstanceMethods {
			rec.InstanceMethods = append(rec.InstanceMethods, convertMethod(m))
		}
		for _, m := range tc.SingletonMethods {
			rec.SingletonMethods = append(rec.SingletonMethods, convertMethod(m))
		}
		c.records[tc.Name] = rec
	}
}

// convertMethod expands the compact "name" / "*name" / "name=default" /
// "&name" / "name:" parameter notation used by the dataset.
func convertMethod(m tomlMethod) Method {
	out := Method{Name: m.Name, ReturnType: m.Return}
	for _, p := range m.Params {
		out.Parameters = append(out.Parameters, parseParam(p))
	}
	return out
}

func parseParam(p string) Param {
	switch {
	case len(p) > 1 && p[0] == '*':
		return Param{Name: p[1:], Kind: ParamRest}
	case len(p) > 1 && p[0] == '&':
		return Param{Name: p[1:], Kind: ParamBlock}
	case len(p) > 1 && p[len(p)-1] == ':':
		return Param{Name: p[:len(p)-1], Kind: ParamKeyword}
	case len(p) > 1 && p[len(p)-1] == '?':
		return Param{Name: p[:len(p)-1], Kind: ParamOptional}
	default:
		return Param{Name: p, Kind: ParamRequired}
	}
}
