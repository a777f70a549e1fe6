package ability

// Value is a numeric attribute clamped to [Min, Max]. Max 0 means unbounded.
type Value struct {
	kind    string
	base    float64
	current float64
	min     float64
	max     float64
}

func NewValue(kind string, base, min, max float64) *Value {
	v := &Value{kind: kind, base: base, min: min, max: max}
	v.current = v.clamp(base)
	return v
}

func (v *Value) Kind() string     { return v.kind }
func (v *Value) Base() float64    { return v.base }
func (v *Value) Current() float64 { return v.current }
func (v *Value) Min() float64     { return v.min }
func (v *Value) Max() float64     { return v.max }

// Set stores x clamped to the value's range and returns the stored value.
func (v *Value) Set(x float64) float64 {
	v.current = v.clamp(x)
	return v.current
}

func (v *Value) Add(delta float64) float64 { return v.Set(v.current + delta) }

// Reset restores the base value.
func (v *Value) Reset() { v.current = v.clamp(v.base) }

func (v *Value) clamp(x float64) float64 {
	if x < v.min {
		return v.min
	}
	if v.max != 0 && x > v.max {
		return v.max
	}
	return x
}
