package hil

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/san-kum/quadsim/internal/hil"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
