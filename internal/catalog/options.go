package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Option is a normalized selectable value with its display label.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// NewOption builds an option, defaulting the label to the value.
func NewOption(value, label string) Option {
	value = strings.TrimSpace(value)
	label = strings.TrimSpace(label)
	if label == "" {
		label = value
	}
	return Option{Value: value, Label: label}
}

// UnmarshalJSON accepts either a bare string or a {value,label} object.
func (o *Option) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*o = NewOption(raw, "")
		return nil
	}
	var obj struct {
		Value any    `json:"value"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("catalog: option must be a string or {value,label}: %w", err)
	}
	*o = NewOption(stringify(obj.Value), obj.Label)
	return nil
}

// NormalizeOptions converts loosely typed option lists (strings, Option values, or
// maps carrying value/label keys) into Options. Entries without a value are dropped.
func NormalizeOptions(raw []any) []Option {
	out := make([]Option, 0, len(raw))
	for _, item := range raw {
		var opt Option
		switch v := item.(type) {
		case Option:
			opt = NewOption(v.Value, v.Label)
		case string:
			opt = NewOption(v, "")
		case map[string]any:
			label, _ := v["label"].(string)
			opt = NewOption(stringify(v["value"]), label)
		case map[string]string:
			opt = NewOption(v["value"], v["label"])
		default:
			opt = NewOption(stringify(v), "")
		}
		if opt.Value == "" {
			continue
		}
		out = append(out, opt)
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func optionsOf(values ...string) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, NewOption(v, ""))
	}
	return out
}

// Hardcoded option sets used when the backend omits an enum.
var (
	DefaultStatuses       = optionsOf("active", "inactive", "archived")
	DefaultConditions     = optionsOf("NEW", "USED", "RECONDITIONED")
	DefaultWeightUnits    = optionsOf(WeightUnitPound, WeightUnitKilogram, WeightUnitOunce, WeightUnitGram)
	DefaultLengthUnits    = optionsOf(LengthUnitInch, LengthUnitCentimeter, LengthUnitMillimeter)
	DefaultPackagingTypes = optionsOf(PackagingSingle, PackagingPair, PackagingPack, PackagingBox, PackagingCase, PackagingBundle, PackagingSet)
)

// MetaOptions are the option sets that drive the form's dropdowns.
type MetaOptions struct {
	Statuses       []Option
	Conditions     []Option
	WeightUnits    []Option
	LengthUnits    []Option
	PackagingTypes []Option
}

// ResolveMetaOptions fills absent option sets with the hardcoded defaults.
func ResolveMetaOptions(statuses, conditions, weightUnits, lengthUnits []Option) MetaOptions {
	return MetaOptions{
		Statuses:       orDefault(statuses, DefaultStatuses),
		Conditions:     orDefault(conditions, DefaultConditions),
		WeightUnits:    orDefault(weightUnits, DefaultWeightUnits),
		LengthUnits:    orDefault(lengthUnits, DefaultLengthUnits),
		PackagingTypes: cloneOptions(DefaultPackagingTypes),
	}
}

// Contains reports whether value is one of opts.
func Contains(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

func orDefault(opts, fallback []Option) []Option {
	if len(opts) == 0 {
		return cloneOptions(fallback)
	}
	return cloneOptions(opts)
}

func cloneOptions(opts []Option) []Option {
	out := make([]Option, len(opts))
	copy(out, opts)
	return out
}
