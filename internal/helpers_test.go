package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPanicOnError(t *testing.T) {
	assert.NotPanics(t, func() { PanicOnError(nil) })
	assert.PanicsWithError(t, "flag not declared", func() { PanicOnError(errors.New("flag not declared")) })
}
