// Package network decides which outgoing page requests are aborted.
package network

import (
	"fmt"
	"log/slog"
	"regexp"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Policy is a compiled URL blocklist. Patterns are matched
// case-insensitively against the full request URL.
type Policy struct {
	patterns []*regexp.Regexp
	blocked  atomic.Int64
	allowed  atomic.Int64
}

// NewPolicy compiles the given patterns.
func NewPolicy(patterns []string) (*Policy, error) {
	p := &Policy{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, raw := range patterns {
		rx, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return nil, fmt.Errorf("network: compile pattern %q: %w", raw, err)
		}
		p.patterns = append(p.patterns, rx)
	}
	return p, nil
}

// Blocks reports whether a request to rawURL should be aborted.
func (p *Policy) Blocks(rawURL string) bool {
	for _, rx := range p.patterns {
		if rx.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// Stats returns how many requests were blocked and allowed so far.
func (p *Policy) Stats() (blocked, allowed int64) {
	return p.blocked.Load(), p.allowed.Load()
}

// Attach installs a request interceptor on page that aborts every
// request matching the policy and lets the rest through unmodified.
// It must run before navigation. The caller stops the returned router.
func (p *Policy) Attach(page *rod.Page) (*rod.HijackRouter, error) {
	router := page.HijackRequests()

	// Pattern "*" with an empty resource type intercepts every request.
	err := router.Add("*", "", func(ctx *rod.Hijack) {
		u := ctx.Request.URL().String()
		if p.Blocks(u) {
			p.blocked.Add(1)
			slog.Debug("request blocked", "url", u)
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		p.allowed.Add(1)
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		_ = router.Stop()
		return nil, fmt.Errorf("install request interceptor: %w", err)
	}

	// Run blocks until Stop.
	go router.Run()

	return router, nil
}
