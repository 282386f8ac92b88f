package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kileldylan/afrinet-project/internal/domain/ports/adapter"
	"github.com/kileldylan/afrinet-project/internal/infra/metrics"
)

var _ adapter.OperatorAlerter = (*NoopAlerter)(nil)

// NoopAlerter logs alerts instead of sending them; used when no bot token is configured.
type NoopAlerter struct {
	log *zerolog.Logger
}

func NewNoopAlerter(logger *zerolog.Logger) *NoopAlerter {
	l := logger.With().Str("component", "noop_alert").Logger()
	return &NoopAlerter{log: &l}
}

func (n *NoopAlerter) Alert(ctx context.Context, text string) error {
	metrics.IncOperatorAlert("disabled")
	n.log.Warn().Str("alert", text).Msg("operator alert (telegram disabled)")
	return nil
}
