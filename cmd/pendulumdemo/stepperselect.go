package main

import (
	"fmt"

	"github.com/soypat/odual/newton"
	"github.com/soypat/odual/nlfunc"
	"github.com/soypat/odual/stepper"
)

func buildStepper(method string, rhs nlfunc.Function, opts *newton.Options) (stepper.Stepper, error) {
	switch method {
	case "explicit-euler":
		return stepper.NewExplicitEuler(rhs), nil
	case "improved-euler":
		return stepper.NewImprovedEuler(rhs), nil
	case "implicit-euler":
		return stepper.NewImplicitEuler(rhs, opts), nil
	case "crank-nicolson":
		return stepper.NewCrankNicolson(rhs, opts), nil
	default:
		return nil, fmt.Errorf("pendulumdemo: unknown method %q", method)
	}
}
