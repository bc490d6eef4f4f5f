// Package transport moves request and reply text between the client and a
// Platinum shade controller over TCP.
//
// # Framing
//
// Replies are not length prefixed. Each exchange therefore:
//  1. Opens a connection (default port 522)
//  2. Reads until the banner "Shade Controller" has been seen
//  3. Writes the request bytes
//  4. Reads one byte at a time until the accumulated reply ends with the
//     request's sentinel
//  5. Closes the connection
//
// All wire text is code page 437. Requests are encoded and replies decoded
// at this boundary with golang.org/x/text/encoding/charmap; the rest of the
// module works with ordinary Go strings.
//
// # Partial Replies
//
// If the deadline passes or the controller closes the stream before the
// sentinel arrives, the bytes received so far are discarded and an *Error
// with Type ErrTypeTimeout is returned. Callers never see partial replies.
// The discarded byte count is kept on the error and the bytes themselves are
// written to the debug log.
//
// # Usage Example
//
//	client := transport.NewClient("192.168.1.50", 522, transport.WithTimeout(5*time.Second))
//
//	reply, err := client.Exchange(ctx, protocol.SnapshotRequest())
//	if err != nil {
//	    fmt.Println(transport.GetShortErrorMessage(err))
//	    return
//	}
//
//	// Liveness check on a held connection
//	conn, err := client.Dial(ctx)
//	if err == nil {
//	    defer conn.Close()
//	    alive := client.IsAlive(ctx, conn)
//	}
//
// # Error Handling
//
// Errors are *Error values classified as connection, refused, DNS, timeout,
// or encoding failures. IsConnectionError, IsTimeoutError, and IsRetryable
// inspect them; GetTroubleshootingHint returns user-facing advice.
package transport
