// Package infer runs inference on compiled models: MAP estimation with
// gonum optimizers and MCMC sampling with Metropolis, slice, HMC and NUTS
// steps.
//
// A sampling run is a sweep of steps per draw. Each step owns a disjoint
// set of free variables and updates them in place in the flat unconstrained
// vector of the model; the next step sees the updated vector. Steps are
// assigned by planSteps from the configured StepSpecs, with defaults for
// variables no step claims.
//
// All randomness comes from one PCG source seeded with SampleConfig.Seed.
package infer
