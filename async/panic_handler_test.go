package async

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	got *any
}

func (h recordingHandler) HandlePanic(r any) {
	*h.got = r
}

func TestPanicHandler(t *testing.T) {
	var got any

	require.NotPanics(t, func() {
		defer HandlePanic(recordingHandler{got: &got})
		panic("there")
	})

	require.Equal(t, "there", got)

	require.NotPanics(t, func() {
		defer HandlePanic(LogPanicHandler{})
		panic("logged")
	})

	require.PanicsWithValue(t, "where", func() {
		defer HandlePanic(NoopPanicHandler{})
		panic("where")
	})

	require.PanicsWithValue(t, "everywhere", func() {
		defer HandlePanic(nil)
		panic("everywhere")
	})
}
