package verify

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/randomizedcoder/go-mist-scatter/internal/layout"
)

// liveSeedOffset is added to the served seed for the reseed round trip.
const liveSeedOffset = 1

// verifyLive opens the layer's websocket, checks the initial frame matches
// the HTTP payload, then reseeds once and checks the regenerated layer.
func (v *Verifier) verifyLive(ctx context.Context, result *LayerResult) {
	if err := v.checkLive(ctx, result); err != nil {
		result.Error = fmt.Sprintf("live: %v", err)
		return
	}
	result.Live = true
}

func (v *Verifier) checkLive(ctx context.Context, result *LayerResult) error {
	u := *v.base
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/layers/" + result.Name + "/ws"

	dialer := websocket.Dialer{HandshakeTimeout: v.opts.Timeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	var first layout.LayerResponse
	if err := conn.ReadJSON(&first); err != nil {
		return fmt.Errorf("read initial frame: %w", err)
	}
	if first.Seed != result.Seed || first.Count != result.Count {
		return fmt.Errorf("initial frame is seed %d count %d, HTTP served seed %d count %d",
			first.Seed, first.Count, result.Seed, result.Count)
	}
	result.Mismatches = append(result.Mismatches, Compare(first)...)

	seed := result.Seed + liveSeedOffset
	if err := conn.WriteJSON(layout.Reseed{Seed: &seed}); err != nil {
		return fmt.Errorf("write reseed: %w", err)
	}
	var next layout.LayerResponse
	if err := conn.ReadJSON(&next); err != nil {
		return fmt.Errorf("read reseeded frame: %w", err)
	}
	if next.Seed != seed {
		return fmt.Errorf("reseed to %d answered with seed %d", seed, next.Seed)
	}
	if result.Count > 0 && slices.Equal(next.Particles, first.Particles) {
		return fmt.Errorf("reseed to %d returned the unchanged layout", seed)
	}
	result.Mismatches = append(result.Mismatches, Compare(next)...)

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
