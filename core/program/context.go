package program

import "github.com/voltmesh/prodsim/core/model"

// ParamSlot addresses one scalar parameter value in a build context.
type ParamSlot struct {
	Key    model.ParameterKey
	Device string
	Period int
}

// BuildContext carries parameter values into a decision model build.
// Feed-forward rules and chronology resolution write slots; the
// program builder reads them. Writes are plain assignment, so applying
// the same rule twice with the same source yields the same values.
type BuildContext struct {
	params map[ParamSlot]float64
}

// NewBuildContext returns an empty context.
func NewBuildContext() *BuildContext {
	return &BuildContext{params: make(map[ParamSlot]float64)}
}

// SetParameter assigns a slot value, overwriting any prior value.
func (c *BuildContext) SetParameter(key model.ParameterKey, device string, period int, v float64) {
	c.params[ParamSlot{key, device, period}] = v
}

// Parameter returns a slot value.
func (c *BuildContext) Parameter(key model.ParameterKey, device string, period int) (float64, bool) {
	v, ok := c.params[ParamSlot{key, device, period}]
	return v, ok
}

// HasAny reports whether any slot exists for the given key and device.
func (c *BuildContext) HasAny(key model.ParameterKey, device string) bool {
	for slot := range c.params {
		if slot.Key == key && slot.Device == device {
			return true
		}
	}
	return false
}

// Slots returns a copy of all populated slots.
func (c *BuildContext) Slots() map[ParamSlot]float64 {
	out := make(map[ParamSlot]float64, len(c.params))
	for k, v := range c.params {
		out[k] = v
	}
	return out
}

// Len returns the number of populated slots.
func (c *BuildContext) Len() int { return len(c.params) }
