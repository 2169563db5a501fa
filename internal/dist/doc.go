// Package dist provides the probability distributions a model variable can
// follow.
//
// Each distribution is a tagged variant: a Kind plus the parameter payload
// evaluated for one element. Kinds know their parameter names, whether they
// are discrete, and which transform maps their support onto the real line.
//
// # Parameterization
//
// Normal is parameterized by precision (tau = 1/sd²). Invalid parameters and
// values outside the support yield a log-probability of -Inf; LogProb never
// panics.
//
// # Transforms
//
// Bounded continuous variables are sampled in an unconstrained space:
//
//	Uniform     → Interval(lower, upper)
//	Exponential → Log
//	Beta        → LogOdds
//
// Samplers work on the transformed value y; the model adds LogJacobian(y) to
// the joint log-probability and records Backward(y) in traces.
package dist
