package service

import (
	"context"
	"testing"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJanitor_ExpiresPendingMatches(t *testing.T) {
	h := newHarness(t)
	alice := h.connect("alice")

	h.coord.RequestMatch(context.Background(), alice, 0)
	h.expect("alice", MsgMatchPending)
	h.clock.Advance(10 * time.Minute)

	limiter := ratelimit.NewRateLimiter(5, 1)
	janitor, err := NewJanitor(h.coord, limiter, 20*time.Millisecond, 20*time.Millisecond, nil)
	require.NoError(t, err)
	janitor.Start()
	defer func() { assert.NoError(t, janitor.Stop()) }()

	require.Eventually(t, func() bool {
		return h.coord.PendingMatchID() == ""
	}, 2*time.Second, 10*time.Millisecond)
	h.expect("alice", MsgMatchExpired)
}
