package adapter

import "context"

// OperatorAlerter notifies a human about conditions that need manual action,
// such as a completed payment that cannot be provisioned.
type OperatorAlerter interface {
	Alert(ctx context.Context, text string) error
}
