package migration

import (
	"context"
	"fmt"

	"magewoo/internal/models"
)

// sourceProbe is the pre-flight slice of the Magento client.
type sourceProbe interface {
	Ping(ctx context.Context) error
	Probe(ctx context.Context) error
	Count(ctx context.Context, kind models.EntityKind) (int, error)
}

// PreflightError names the check stage that failed so the start endpoint can
// tell "unreachable" from "bad credentials" from "capability missing".
type PreflightError struct {
	Stage string
	Err   error
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("pre-flight %s check failed: %v", e.Stage, e.Err)
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}

// Preflight runs the mandatory connectivity checks in order: unauthenticated
// liveness, credential probe, then a capability check for the entity type.
// Any failure aborts job creation; no job should start doomed to fail
// mid-run. Returns the remote total as the job's initial count.
func Preflight(ctx context.Context, source sourceProbe, kind models.EntityKind) (int, error) {
	if err := source.Ping(ctx); err != nil {
		return 0, &PreflightError{Stage: "connectivity", Err: err}
	}
	if err := source.Probe(ctx); err != nil {
		return 0, &PreflightError{Stage: "authentication", Err: err}
	}
	total, err := source.Count(ctx, kind)
	if err != nil {
		return 0, &PreflightError{Stage: "capability", Err: err}
	}
	return total, nil
}
