package model

import (
	"fmt"
	"strings"
)

// Describe renders the model graph and vector layout as stable text.
//
// Example:
//
//	model disaster
//	  switchpoint ~ DiscreteUniform(lower=0, upper=110) free
//	  early_mean ~ Exponential(lam=1) free transform=log
//	  disasters ~ Poisson(mu=f(switchpoint, early_mean, late_mean)) shape=(111) observed
//	ordering dim=2
//	  switchpoint [0:1]
//	  early_mean_log_ [1:2]
func (c *Compiled) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s\n", c.model.name)
	for _, v := range c.model.vars {
		b.WriteString("  ")
		b.WriteString(describeVar(v))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "ordering dim=%d\n", c.ordering.Size)
	for _, s := range c.ordering.Slots {
		fmt.Fprintf(&b, "  %s [%d:%d]\n", s.TransformedName(), s.Offset, s.Offset+s.Size)
	}
	return b.String()
}

func describeVar(v *Var) string {
	var b strings.Builder
	switch v.Role {
	case RoleDeterministic:
		fmt.Fprintf(&b, "%s = f(%s)", v.Name, strings.Join(v.deps, ", "))
	case RolePotential:
		fmt.Fprintf(&b, "%s potential f(%s)", v.Name, strings.Join(v.deps, ", "))
		return b.String()
	default:
		args := make([]string, 0, len(v.Params))
		for _, pname := range v.Kind.ParamNames() {
			args = append(args, pname+"="+v.Params[pname].String())
		}
		fmt.Fprintf(&b, "%s ~ %s(%s)", v.Name, v.Kind, strings.Join(args, ", "))
	}
	if len(v.Shape) > 0 {
		fmt.Fprintf(&b, " shape=%s", FormatShape(v.Shape))
	}
	b.WriteString(" ")
	b.WriteString(v.Role.String())
	if v.Role == RoleFree && !v.NoTransform && !v.Discrete() {
		if t := v.Kind.TransformName(); t != "" {
			b.WriteString(" transform=" + t)
		}
	}
	if v.ImputedFor != "" {
		b.WriteString(" imputes=" + v.ImputedFor)
	}
	if v.Missing != "" {
		fmt.Fprintf(&b, " missing=%d", len(v.MissingIdx))
	}
	return b.String()
}
