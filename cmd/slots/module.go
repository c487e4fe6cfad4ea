package main

import (
	"github.com/reusee/dscope"
	"github.com/reusee/slots/binds"
)

type Module struct {
	dscope.Module
	Binds binds.Module
}
