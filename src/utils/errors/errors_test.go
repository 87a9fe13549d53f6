package errors

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errStatic = Sentinel("static failure")

func TestWrapEKeepsBothErrors(t *testing.T) {
	err := WrapE(errStatic, io.ErrUnexpectedEOF)

	assert.True(t, Is(err, errStatic))
	assert.True(t, Is(err, io.ErrUnexpectedEOF))
	assert.Contains(t, err.Error(), "errors_test.go")
}

func TestWrapefKeepsBothErrors(t *testing.T) {
	err := Wrapef(errStatic, io.EOF, "reading %s", "trade_history.csv")

	assert.True(t, Is(err, errStatic))
	assert.True(t, Is(err, io.EOF))
	assert.Contains(t, err.Error(), "reading trade_history.csv")
}

func TestWrapfAnnotatesCaller(t *testing.T) {
	err := Wrapf(io.EOF, "line %d", 3)

	assert.True(t, Is(err, io.EOF))
	assert.True(t, strings.HasSuffix(err.Error(), "line 3"))
}

func TestNewf(t *testing.T) {
	err := Newf("bad position %d", 7)
	assert.Contains(t, err.Error(), "bad position 7")
	assert.False(t, Is(err, errStatic))
}
