// Package params exposes named runtime parameters (clip volume, filter sigmas, live stream toggles)
// so that an external tool can read and tweak them while the studio is running.
package params

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/multierr"

	"go.viam.com/holo/utils"
)

// ErrUnknownParam is returned when a name is not registered.
var ErrUnknownParam = errors.New("unknown parameter")

// Kind is the value type of a parameter.
type Kind int

// Parameter kinds.
const (
	KindFloat Kind = iota
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// FloatParam is a bounded float parameter. Get and Set are called with the registry lock held and
// must not call back into the registry.
type FloatParam struct {
	Name string
	Min  float64
	Max  float64
	Step float64
	Get  func() float64
	Set  func(float64)
}

// BoolParam is an on/off parameter.
type BoolParam struct {
	Name string
	Get  func() bool
	Set  func(bool)
}

type entry struct {
	kind  Kind
	float *FloatParam
	bool  *BoolParam
}

// Registry holds parameters by name in registration order.
type Registry struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]*entry{}}
}

func (r *Registry) add(name string, e *entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		return errors.New("parameter name cannot be empty")
	}
	if _, ok := r.entries[name]; ok {
		return errors.Errorf("parameter %q already exists", name)
	}
	r.entries[name] = e
	r.order = append(r.order, name)
	return nil
}

// AddFloat registers p.
func (r *Registry) AddFloat(p FloatParam) error {
	if p.Get == nil || p.Set == nil {
		return errors.Errorf("parameter %q needs a getter and a setter", p.Name)
	}
	if p.Min > p.Max {
		return errors.Errorf("parameter %q has min %v above max %v", p.Name, p.Min, p.Max)
	}
	return r.add(p.Name, &entry{kind: KindFloat, float: &p})
}

// AddBool registers p.
func (r *Registry) AddBool(p BoolParam) error {
	if p.Get == nil || p.Set == nil {
		return errors.Errorf("parameter %q needs a getter and a setter", p.Name)
	}
	return r.add(p.Name, &entry{kind: KindBool, bool: &p})
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) lookup(name string) (*entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownParam, name)
	}
	return e, nil
}

// Kind returns the kind of name.
func (r *Registry) Kind(name string) (Kind, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	return e.kind, nil
}

// Float returns the value of a float parameter.
func (r *Registry) Float(name string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	if e.kind != KindFloat {
		return 0, errors.Errorf("parameter %q is a %v", name, e.kind)
	}
	return e.float.Get(), nil
}

// Bool returns the value of a bool parameter.
func (r *Registry) Bool(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.lookup(name)
	if err != nil {
		return false, err
	}
	if e.kind != KindBool {
		return false, errors.Errorf("parameter %q is a %v", name, e.kind)
	}
	return e.bool.Get(), nil
}

// SetFloat sets a float parameter, clamped to its range.
func (r *Registry) SetFloat(name string, v float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.lookup(name)
	if err != nil {
		return err
	}
	if e.kind != KindFloat {
		return errors.Errorf("parameter %q is a %v", name, e.kind)
	}
	e.float.Set(utils.Clamp(v, e.float.Min, e.float.Max))
	return nil
}

// SetBool sets a bool parameter.
func (r *Registry) SetBool(name string, v bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.lookup(name)
	if err != nil {
		return err
	}
	if e.kind != KindBool {
		return errors.Errorf("parameter %q is a %v", name, e.kind)
	}
	e.bool.Set(v)
	return nil
}

// String formats the value of name.
func (r *Registry) String(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	if e.kind == KindBool {
		return cast.ToString(e.bool.Get()), nil
	}
	return cast.ToString(e.float.Get()), nil
}

// SetString parses value according to the kind of name and sets it.
func (r *Registry) SetString(name, value string) error {
	return r.set(name, value)
}

// set converts value to the kind of name and sets it.
func (r *Registry) set(name string, value interface{}) error {
	kind, err := r.Kind(name)
	if err != nil {
		return err
	}
	if kind == KindBool {
		b, err := cast.ToBoolE(value)
		if err != nil {
			return errors.Wrapf(err, "could not convert value for %q", name)
		}
		return r.SetBool(name, b)
	}
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return errors.Wrapf(err, "could not convert value for %q", name)
	}
	return r.SetFloat(name, f)
}

// Step moves a float parameter by n steps, clamped to its range, or flips a bool parameter when n
// is odd.
func (r *Registry) Step(name string, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.lookup(name)
	if err != nil {
		return err
	}
	if e.kind == KindBool {
		if n%2 != 0 {
			e.bool.Set(!e.bool.Get())
		}
		return nil
	}
	v := e.float.Get() + float64(n)*e.float.Step
	e.float.Set(utils.Clamp(v, e.float.Min, e.float.Max))
	return nil
}

// Apply sets every value in values, converting numbers, booleans and strings of any Go type to the
// kind of each parameter. Every entry is attempted; the errors of the failed ones are combined.
func (r *Registry) Apply(values map[string]interface{}) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	for _, name := range names {
		errs = multierr.Append(errs, r.set(name, values[name]))
	}
	return errs
}

// Snapshot returns every value keyed by name, in the shape Apply accepts.
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]interface{}, len(r.entries))
	for name, e := range r.entries {
		if e.kind == KindBool {
			out[name] = e.bool.Get()
		} else {
			out[name] = e.float.Get()
		}
	}
	return out
}
