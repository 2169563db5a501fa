package infer

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/roach88/bayesharness/internal/metrics"
	"github.com/roach88/bayesharness/internal/model"
)

// plannedStep is a step spec bound to the slots it updates.
type plannedStep struct {
	index int
	spec  StepSpec
	slots []model.Slot
}

// planSteps binds step specs to free variables. Steps naming variables
// claim them first; steps with no variables then claim, in order, every
// compatible variable still unclaimed. Variables left over get a default
// step: nuts for continuous, binary_metropolis for 0/1 and metropolis for
// other discrete variables.
func planSteps(c *model.Compiled, specs []StepSpec) ([]plannedStep, error) {
	ordering := c.Ordering()
	claimed := make(map[string]int)
	plans := make([]plannedStep, len(specs))

	resolved := make([]StepSpec, len(specs))
	for i, spec := range specs {
		method, err := ParseMethod(string(spec.Method))
		if err != nil {
			return nil, &StepAssignmentError{Step: i, Method: spec.Method, Reason: "unknown method"}
		}
		spec.Method = method
		resolved[i] = spec
		plans[i] = plannedStep{index: i, spec: spec.withDefaults()}
		for _, name := range spec.Vars {
			slot, ok := ordering.Lookup(name)
			if !ok {
				return nil, &StepAssignmentError{Step: i, Method: spec.Method, Var: name, Reason: "not a free variable"}
			}
			if prev, dup := claimed[name]; dup {
				return nil, &StepAssignmentError{Step: i, Method: spec.Method, Var: name, Reason: fmt.Sprintf("already assigned to step %d", prev)}
			}
			if !spec.Method.accepts(slot) {
				return nil, &StepAssignmentError{Step: i, Method: spec.Method, Var: name, Reason: fmt.Sprintf("method cannot update %s variables", slot.Kind)}
			}
			claimed[name] = i
			plans[i].slots = append(plans[i].slots, slot)
		}
	}

	for i, spec := range resolved {
		if len(spec.Vars) != 0 {
			continue
		}
		for _, slot := range ordering.Slots {
			if _, ok := claimed[slot.Name]; ok || !spec.Method.accepts(slot) {
				continue
			}
			claimed[slot.Name] = i
			plans[i].slots = append(plans[i].slots, slot)
		}
		if len(plans[i].slots) == 0 {
			return nil, &StepAssignmentError{Step: i, Method: spec.Method, Reason: "no variables left to update"}
		}
	}

	defaults := map[Method]int{}
	for _, slot := range ordering.Slots {
		if _, ok := claimed[slot.Name]; ok {
			continue
		}
		method := defaultMethod(slot)
		j, ok := defaults[method]
		if !ok {
			j = len(plans)
			defaults[method] = j
			plans = append(plans, plannedStep{index: j, spec: StepSpec{Method: method}.withDefaults()})
		}
		plans[j].slots = append(plans[j].slots, slot)
	}
	return plans, nil
}

func defaultMethod(s model.Slot) Method {
	switch {
	case s.Binary():
		return MethodBinaryMetropolis
	case s.Discrete():
		return MethodMetropolis
	}
	return MethodNUTS
}

// buildStep instantiates a planned step at start point x.
func buildStep(c *model.Compiled, p plannedStep, x []float64, rng *rand.Rand, m *metrics.Sampler) (stepper, error) {
	b := base{method: p.spec.Method, c: c, rng: rng, metrics: m}
	for _, s := range p.slots {
		b.vars = append(b.vars, s.Name)
		b.idx = append(b.idx, s.Indices()...)
	}

	scaling, err := stepScaling(c, p, b.idx, x)
	if err != nil {
		return nil, err
	}

	switch p.spec.Method {
	case MethodMetropolis:
		s := &metropolis{base: b, scaling: scaling, scale: p.spec.StepScale}
		for _, slot := range p.slots {
			for i := 0; i < slot.Size; i++ {
				s.discrete = append(s.discrete, slot.Discrete())
			}
		}
		return s, nil
	case MethodBinaryMetropolis:
		return &binaryMetropolis{base: b}, nil
	case MethodSlice:
		w := make([]float64, len(b.idx))
		for k := range w {
			w[k] = p.spec.StepScale * scaling[k]
		}
		return &slice{base: b, width: w}, nil
	case MethodHMC, MethodNUTS:
		eps := p.spec.StepScale / math.Pow(float64(len(b.idx)), 0.25)
		h := hamiltonian{base: b, mass: scaling, da: newDualAverage(eps, p.spec.TargetAccept)}
		if p.spec.Method == MethodHMC {
			return &hmc{hamiltonian: h, pathLength: p.spec.PathLength}, nil
		}
		return &nuts{hamiltonian: h, maxDepth: p.spec.MaxTreeDepth}, nil
	}
	return nil, &StepAssignmentError{Step: p.index, Method: p.spec.Method, Reason: "unknown method"}
}

// stepScaling returns the per-coordinate scaling of a step. Metropolis and
// slice steps read it as standard deviations, hmc and nuts as masses.
// Non-positive or non-finite entries fall back to 1.
func stepScaling(c *model.Compiled, p plannedStep, idx []int, x []float64) ([]float64, error) {
	n := len(idx)
	out := make([]float64, n)
	for k := range out {
		out[k] = 1
	}
	if p.spec.Method == MethodBinaryMetropolis {
		return out, nil
	}

	switch {
	case p.spec.ScalingHessian:
		h := c.Hessian(x, idx)
		for k := range out {
			prec := -h.At(k, k)
			if p.spec.Method.gradient() {
				out[k] = prec
			} else {
				out[k] = 1 / math.Sqrt(prec)
			}
		}
	case len(p.spec.Scaling) == 1:
		for k := range out {
			out[k] = p.spec.Scaling[0]
		}
	case len(p.spec.Scaling) == n:
		copy(out, p.spec.Scaling)
	case len(p.spec.Scaling) != 0:
		return nil, &StepAssignmentError{
			Step:   p.index,
			Method: p.spec.Method,
			Reason: fmt.Sprintf("scaling has %d entries, want 1 or %d", len(p.spec.Scaling), n),
		}
	}
	for k, v := range out {
		if !(v > 0) || math.IsInf(v, 0) {
			out[k] = 1
		}
	}
	return out, nil
}
