// Package hub models a Platinum controller and drives its shades.
//
// A Hub holds the rooms, scenes, and shades the controller reported in its
// snapshots, together with the last known position of every shade. Rooms,
// scenes, and shades hold a back-reference to their Hub; the Hub owns them.
//
// # Basic Usage
//
//	h, err := hub.Connect(ctx, "192.168.1.50")
//	if err != nil {
//	    return err
//	}
//
//	shade := h.Shade("Bay Window")
//	if shade == nil {
//	    return hub.ErrNotFound
//	}
//
//	result, err := shade.SetLevel(ctx, "50")
//	if err != nil {
//	    return err
//	}
//	if !result.Converged {
//	    fmt.Printf("shade stopped at %d after %d attempts\n", result.Position, result.Attempts)
//	}
//
// # Move and Verify
//
// The controller acknowledges a move before the motor has finished and
// sometimes ignores a command outright. SetLevel therefore sends the move
// and its release, waits for the settle delay, refreshes, and repeats until
// the reported position satisfies the target or the attempt limit is
// reached. Targets "up" and "down" need the exact end stop (255 or 0);
// percentages accept a position within one step of the requested value.
//
// # Merging
//
// Refresh merges each snapshot into the registries. An entity whose name
// is already known is kept as is; positions are updated by shade id. A
// refresh that fails or returns nothing leaves everything untouched and
// returns ErrNoData.
package hub
