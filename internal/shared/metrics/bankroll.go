package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Coletores do motor de reconciliação. Registrados no registry default,
// expostos pelo servidor de métricas de cada serviço.
var (
	ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankroll_reconcile_total",
		Help: "Edições de aposta processadas, por resultado.",
	}, []string{"result"}) // applied | noop | rejected | error

	BankBalanceCents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bankroll_balance_cents",
		Help: "Último saldo de banca comprometido, em centavos.",
	})

	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bankroll_settlements_total",
		Help: "Resultados de partida consumidos pelo settlement-worker.",
	}, []string{"outcome"})
)
