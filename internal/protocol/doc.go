// Package protocol implements the Platinum shade controller text protocol.
//
// This package holds the wire vocabulary of the controller: the fixed
// request strings, the sentinels that terminate each response, and the
// parser for the inventory snapshot returned by the "$dat" request. It
// performs no I/O; the transport package moves the bytes.
//
// # Protocol Overview
//
// The controller listens on TCP port 522. On connect it prints a banner
// containing "Shade Controller". Each request is a short ASCII command code
// followed by positional fields joined with '-'. Responses are not length
// prefixed; a response is complete when the accumulated text ends with the
// sentinel for that request:
//
//	Purpose          Request            Sentinel
//	snapshot         $dat               upd01-
//	liveness         $dmy               ack
//	move shade       $pss{id}-04-{raw}  done
//	release          $rls               act00-00-
//	run scene        $inm{id}-          act00-00-
//
// # Snapshot Format
//
// The snapshot is a blob of lines separated by any mix of CR and LF. Every
// line begins with the same two-character sequence marker, which is stripped
// before the record tag is read:
//
//	01$cr00-Living Room
//	01$cm02-Morning
//	01$cs03-00-04-Bay Window
//	01$cp03-04-128-
//
// Record tags:
//   - $cr: room (id at offset 3, name after the last '-')
//   - $cm: scene (same layout as a room)
//   - $cs: shade (id at offset 3, room id in field 1, name in the last field)
//   - $cp: shade position (id at offset 3, three digits before the final character)
//
// Positions are on the raw 0-255 scale used by the move command. Older
// firmware tooling rescaled the state field to 0-16; that rescale is a
// legacy artifact and is not applied here.
//
// # Usage Example
//
//	snap := protocol.ParseSnapshot(raw)
//	for _, s := range snap.Shades {
//	    fmt.Printf("%s %s (room %s)\n", s.ID, s.Name, s.RoomID)
//	}
//
//	req, err := protocol.BuildMove("03", 128)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// req.Payload == "$pss03-04-128", req.Sentinel == "done"
//
// # Thread Safety
//
// All parsing and construction functions are stateless and safe for concurrent use.
package protocol
