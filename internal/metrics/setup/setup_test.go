package setup

import (
	"testing"

	"github.com/stretchr/testify/require"

	"salesreport/internal/logger"
)

func TestInstall(t *testing.T) {
	t.Setenv("METRICS_BACKEND", "")

	tests := []struct {
		name string
		in   Settings
		want string
	}{
		{name: "empty", in: Settings{}, want: "none"},
		{name: "none", in: Settings{Backend: "none"}, want: "none"},
		{name: "unknown", in: Settings{Backend: "graphite"}, want: "none"},
		{name: "datadog", in: Settings{Backend: "datadog", DogStatsdAddr: "127.0.0.1:8125"}, want: "datadog"},
		{name: "prometheus", in: Settings{Backend: "Prometheus", PushgatewayURL: "http://127.0.0.1:1"}, want: "prometheus"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			flush, got := Install(tc.in, logger.Discard())
			require.NotNil(t, flush)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("METRICS_BACKEND", "datadog")
	t.Setenv("DD_DOGSTATSD_ADDR", "10.0.0.1:8125")
	t.Setenv("PUSHGATEWAY_URL", "")

	s := Settings{}.resolved()
	require.Equal(t, "datadog", s.Backend)
	require.Equal(t, "10.0.0.1:8125", s.DogStatsdAddr)
	require.Equal(t, "http://localhost:9091", s.PushgatewayURL)
	require.Equal(t, "salesreport", s.Job)
}
