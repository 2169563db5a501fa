// Package model provides the registry of random variables that make up a
// Bayesian model and compiles it into a log-probability function.
//
// A Model is an explicit context object. Every declaration is a method call
// on it; there is no ambient "current model".
//
//	m := model.New("disaster")
//	m.Declare("switchpoint", dist.DiscreteUniform, model.Params{
//	    "lower": model.Const(0),
//	    "upper": model.Const(111),
//	})
//	m.Declare("early_mean", dist.Exponential, model.Params{"lam": model.Const(1)})
//
// Declarations fail immediately with DuplicateNameError, ShapeMismatchError
// or UnresolvedParentError; a failed declaration leaves the model unchanged.
//
// # Compilation
//
// Compile validates that the parent graph is acyclic, lays the free
// variables out in a flat vector (the Ordering) and returns a Compiled model.
// Bounded continuous variables occupy their slot in transformed space (see
// package dist), so samplers and optimizers work on ℝⁿ. Compiled values are
// read-only and safe to share between steps of one inference run.
//
// # Missing data
//
// Observed values that are NaN are treated as missing. Each observed
// variable with missing entries gets an extra free variable named
// "<name>_missing" whose elements fill the gaps.
package model
