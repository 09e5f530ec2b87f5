// Package logging starts background goroutines annotated with pprof labels, so they can be told apart in
// profiles captured by the benchmarks.
package logging

import (
	"context"
	"fmt"
	"runtime"
	"runtime/pprof"
	"strconv"

	"github.com/ProtonMail/localstore/async"
)

// Labels are added to the labels of the annotated goroutine.
type Labels map[string]any

// GoAnnotated runs fn in a new goroutine labelled with the calling function and the given labels.
// Panics are handed to panicHandler.
func GoAnnotated(ctx context.Context, panicHandler async.PanicHandler, fn func(context.Context), labels ...Labels) {
	set := labelSet(labels...)

	go func() {
		defer async.HandlePanic(panicHandler)

		pprof.Do(ctx, set, fn)
	}()
}

func labelSet(labels ...Labels) pprof.LabelSet {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return pprof.Labels()
	}

	res := []string{"fn", runtime.FuncForPC(pc).Name(), "file", file, "line", strconv.Itoa(line)}

	for _, l := range labels {
		for key, val := range l {
			res = append(res, key, fmt.Sprintf("%v", val))
		}
	}

	return pprof.Labels(res...)
}
