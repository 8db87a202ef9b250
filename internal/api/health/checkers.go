package health

import (
	"context"
	"fmt"
)

// FuncChecker adapts a function to the Checker interface.
type FuncChecker struct {
	name  string
	check func(ctx context.Context) error
}

// NewFuncChecker creates a checker that calls check.
func NewFuncChecker(name string, check func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, check: check}
}

// Name returns the checker name.
func (c *FuncChecker) Name() string {
	return c.name
}

// Check runs the check function.
func (c *FuncChecker) Check(ctx context.Context) error {
	if c.check == nil {
		return fmt.Errorf("%s check not configured", c.name)
	}
	return c.check(ctx)
}

// RunningChecker checks that a background server is accepting connections.
type RunningChecker struct {
	name      string
	isRunning func() bool
}

// NewRunningChecker creates a new running-state checker.
func NewRunningChecker(name string, isRunning func() bool) *RunningChecker {
	return &RunningChecker{name: name, isRunning: isRunning}
}

// Name returns the checker name.
func (c *RunningChecker) Name() string {
	return c.name
}

// Check verifies the server is running.
func (c *RunningChecker) Check(ctx context.Context) error {
	if c.isRunning == nil || !c.isRunning() {
		return fmt.Errorf("%s not running", c.name)
	}
	return nil
}
