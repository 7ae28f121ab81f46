package library

import (
	"golang.org/x/sync/singleflight"
)

// Group collapses concurrent fetches of the same reference.
type Group struct {
	g singleflight.Group
}

type flightResult struct {
	text   string
	err    error
	shared bool
}

// DoChan starts or joins the flight for ref. The channel receives exactly
// one result; callers that stop waiting do not stop the flight.
func (g *Group) DoChan(ref string, fn func() (string, error)) <-chan flightResult {
	out := make(chan flightResult, 1)
	ch := g.g.DoChan(ref, func() (any, error) {
		return fn()
	})
	go func() {
		res := <-ch
		text, _ := res.Val.(string)
		out <- flightResult{text: text, err: res.Err, shared: res.Shared}
	}()
	return out
}
