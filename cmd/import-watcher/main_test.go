package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunReturnsConfigErrors(t *testing.T) {
	t.Setenv("IMPORT_DIR", " ")
	assert.EqualError(t, run(), "missing required env var: IMPORT_DIR")
}
