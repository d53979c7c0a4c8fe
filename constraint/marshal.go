package constraint

import (
	"fmt"
	"reflect"

	"github.com/blang/semver/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/motionkit/kinet"
	"github.com/motionkit/kinet/fn"
	"github.com/motionkit/kinet/liegroup"
	"github.com/motionkit/kinet/segment"
)

// Resolver restores the external references a serialized constraint carries:
// functions are stored by name and resolved against the model the constraint
// applies to, and explicit constraints need the full configuration space to
// rebuild their residual.
type Resolver interface {
	ResolveFunction(name string) (fn.DifferentiableFunction, error)
	ConfigSpace() *liegroup.Space
}

// implicitRecord is the persisted form of an implicit constraint.
type implicitRecord struct {
	Version    string
	Function   string
	Comparison []uint8
	Rhs        []float64
}

// explicitRecord is the persisted form of an explicit constraint. The residual
// function is rebuilt on decode; only the closed-form map is referenced.
type explicitRecord struct {
	Version    string
	Map        string
	Comparison []uint8
	Rhs        []float64
	InputConf  segment.Set
	OutputConf segment.Set
	InputVel   segment.Set
	OutputVel  segment.Set
}

// envelope is the top-level serialized value. The CBOR tag of the payload
// selects the constraint kind on decode, in one registration point instead of
// scattered per-kind registration.
type envelope struct {
	Payload interface{}
}

func getTagSet() cbor.TagSet {
	ts := cbor.NewTagSet()
	// 65536-15309735 unassigned per the IANA CBOR tag registry
	tagNum := uint64(3901650)
	addType := func(t reflect.Type) {
		if err := ts.Add(
			cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagRequired},
			t,
			tagNum,
		); err != nil {
			panic(err)
		}
		tagNum++
	}
	addType(reflect.TypeOf(implicitRecord{}))
	addType(reflect.TypeOf(explicitRecord{}))
	return ts
}

// Marshal serializes a constraint. Functions are referenced by name; see
// Unmarshal for how they are resolved back.
func Marshal(c Constraint) ([]byte, error) {
	var payload interface{}
	switch v := c.(type) {
	case *Explicit:
		payload = explicitRecord{
			Version:    kinet.Version.String(),
			Map:        v.g.Name(),
			Comparison: comparisonBytes(v.comparison),
			Rhs:        v.RightHandSide(),
			InputConf:  v.inConf,
			OutputConf: v.outConf,
			InputVel:   v.inVel,
			OutputVel:  v.outVel,
		}
	case *Implicit:
		payload = implicitRecord{
			Version:    kinet.Version.String(),
			Function:   v.function.Name(),
			Comparison: comparisonBytes(v.comparison),
			Rhs:        v.RightHandSide(),
		}
	default:
		return nil, fmt.Errorf("unknown constraint type %T", c)
	}

	em, err := cbor.CoreDetEncOptions().EncModeWithTags(getTagSet())
	if err != nil {
		return nil, err
	}
	return em.Marshal(envelope{Payload: payload})
}

// Unmarshal deserializes a constraint, resolving function references through r.
// The decoded constraint reproduces the evaluated behavior of the serialized
// one, including its right-hand side.
func Unmarshal(data []byte, r Resolver) (Constraint, error) {
	dm, err := cbor.DecOptions{}.DecModeWithTags(getTagSet())
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := dm.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	// tagged payloads may decode as pointers to the registered types
	switch p := env.Payload.(type) {
	case *implicitRecord:
		env.Payload = *p
	case *explicitRecord:
		env.Payload = *p
	}

	switch rec := env.Payload.(type) {
	case implicitRecord:
		if err := checkVersion(rec.Version); err != nil {
			return nil, err
		}
		f, err := r.ResolveFunction(rec.Function)
		if err != nil {
			return nil, fmt.Errorf("resolving function %q: %w", rec.Function, err)
		}
		c, err := NewImplicit(f, comparisonFromBytes(rec.Comparison))
		if err != nil {
			return nil, err
		}
		if err := c.SetRightHandSide(rec.Rhs); err != nil {
			return nil, err
		}
		return c, nil

	case explicitRecord:
		if err := checkVersion(rec.Version); err != nil {
			return nil, err
		}
		g, err := r.ResolveFunction(rec.Map)
		if err != nil {
			return nil, fmt.Errorf("resolving explicit map %q: %w", rec.Map, err)
		}
		c, err := NewExplicit(r.ConfigSpace(), g,
			rec.InputConf, rec.OutputConf, rec.InputVel, rec.OutputVel,
			comparisonFromBytes(rec.Comparison))
		if err != nil {
			return nil, err
		}
		if err := c.SetRightHandSide(rec.Rhs); err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown serialized constraint payload %T", env.Payload)
	}
}

func checkVersion(v string) error {
	written, err := semver.ParseTolerant(v)
	if err != nil {
		return fmt.Errorf("when parsing serialized version: %w", err)
	}
	if written.Major != kinet.Version.Major {
		return fmt.Errorf("serialized constraint was written with version %s, current version is %s", written, kinet.Version)
	}
	return nil
}

func comparisonBytes(c ComparisonTypes) []uint8 {
	out := make([]uint8, len(c))
	for i, t := range c {
		out[i] = uint8(t)
	}
	return out
}

func comparisonFromBytes(b []uint8) ComparisonTypes {
	out := make(ComparisonTypes, len(b))
	for i, t := range b {
		out[i] = ComparisonType(t)
	}
	return out
}
