// Package endpoint parses and resolves the comma-separated server list
// and hands out dial targets in round-robin order (spec.md §4.2).
package endpoint

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"strings"
)

// Addr is a single resolvable, dialable endpoint.
type Addr struct {
	Host string
	Port int
}

// String renders the endpoint as "host:port".
func (a Addr) String() string { return net.JoinHostPort(a.Host, strconv.Itoa(a.Port)) }

// Resolver resolves a hostname to IP addresses. net.DefaultResolver
// satisfies this; tests substitute a fake.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Set is a resolved, ordered collection of endpoints with a
// round-robin connect cursor (spec.md §4.2).
type Set struct {
	addrs   []Addr
	cursor  int
	laps    int
	deterministic bool
}

// Option configures Parse.
type Option func(*options)

type options struct {
	deterministic bool
	resolver      Resolver
	rng           *rand.Rand
}

// WithDeterministicOrder disables shuffling, preserving the order the
// host list was supplied in. Equivalent to spec.md's
// "deterministic_conn_order" global flag, expressed as a constructor
// option instead of process-global state (spec.md §6).
func WithDeterministicOrder() Option {
	return func(o *options) { o.deterministic = true }
}

// WithResolver overrides the DNS resolver (for tests).
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithRand overrides the shuffle source (for deterministic tests).
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// Parse splits a comma-separated "host:port,host:port" list, resolves
// each host, and (unless WithDeterministicOrder is set) shuffles the
// resulting address array for load spreading (spec.md §4.2 steps 1-3).
func Parse(ctx context.Context, hosts string, opts ...Option) (*Set, error) {
	o := &options{resolver: net.DefaultResolver}
	for _, opt := range opts {
		opt(o)
	}

	var addrs []Addr
	for _, tok := range strings.Split(hosts, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		host, portStr, err := splitHostPort(tok)
		if err != nil {
			return nil, err
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("endpoint: non-numeric port in %q: %w", tok, err)
		}

		ips, err := o.resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("endpoint: resolve %q: %w", host, err)
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("endpoint: %q resolved to no addresses", host)
		}
		for _, ip := range ips {
			addrs = append(addrs, Addr{Host: ip, Port: port})
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("endpoint: empty host list")
	}

	if !o.deterministic {
		shuffle(addrs, o.rng)
	}

	return &Set{addrs: addrs, deterministic: o.deterministic}, nil
}

// splitHostPort splits a token into host and port, rejecting a missing
// port (spec.md §4.2 step 1). It uses net.SplitHostPort, so an IPv6
// literal must be bracketed ("[::1]:2181"); an unbracketed host with
// more than one colon is rejected rather than split on its last colon.
func splitHostPort(tok string) (string, string, error) {
	if !strings.Contains(tok, ":") {
		return "", "", fmt.Errorf("endpoint: missing port in %q", tok)
	}
	host, port, err := net.SplitHostPort(tok)
	if err != nil {
		return "", "", fmt.Errorf("endpoint: %q: %w", tok, err)
	}
	return host, port, nil
}

// shuffle performs a uniform Fisher-Yates shuffle. The reference
// implementation performs N random swaps between two uniformly-chosen
// positions; spec.md §4.2 explicitly permits a uniform shuffle instead.
func shuffle(addrs []Addr, rng *rand.Rand) {
	swap := func(i, j int) { addrs[i], addrs[j] = addrs[j], addrs[i] }
	if rng != nil {
		rng.Shuffle(len(addrs), swap)
		return
	}
	rand.Shuffle(len(addrs), swap)
}

// Len returns the number of resolved endpoints.
func (s *Set) Len() int { return len(s.addrs) }

// Current returns the endpoint at the connect cursor.
func (s *Set) Current() Addr { return s.addrs[s.cursor] }

// Advance moves the cursor to the next endpoint, wrapping at N. It
// returns true when the cursor wraps back to the start, i.e. a full
// lap of every endpoint has been attempted (used to drive the
// endpoint-wrap back-off decision recorded in DESIGN.md).
func (s *Set) Advance() (wrapped bool) {
	s.cursor++
	if s.cursor >= len(s.addrs) {
		s.cursor = 0
		s.laps++
		return true
	}
	return false
}

// Laps returns how many full rotations through the endpoint set have
// completed (spec.md P6: "after N consecutive connect failures on an
// N-element endpoint set, the cursor has visited every endpoint
// exactly once").
func (s *Set) Laps() int { return s.laps }
