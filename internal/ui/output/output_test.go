package output_test

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/hoard/internal/ui/output"
)

func TestColorProfile_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, termenv.Ascii, output.ColorProfile())
}

func TestNew_WritesThrough(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	out := output.New(&buf)

	_, err := out.WriteString(out.String("resident").Foreground(termenv.ANSIRed).String())
	assert.NoError(t, err)
	assert.Equal(t, "resident", buf.String(), "no escape codes under NO_COLOR")
}

func TestNewWithProfile(t *testing.T) {
	var buf bytes.Buffer
	out := output.NewWithProfile(&buf, func() termenv.Profile { return termenv.ANSI })

	_, _ = out.WriteString(out.String("x").Foreground(termenv.ANSIRed).String())
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestNew_NilWriter(t *testing.T) {
	assert.NotNil(t, output.New(nil))
}
