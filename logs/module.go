package logs

import (
	"github.com/reusee/dscope"
	"github.com/reusee/slots/configs"
)

type Module struct {
	dscope.Module
	Configs configs.Module
}

// Span identifies a unit of work that spans several log records.
type Span string

type spanKey struct{}

var SpanKey spanKey
