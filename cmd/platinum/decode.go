package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/platinum/internal/protocol"
	"github.com/muurk/platinum/internal/transport"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode a captured snapshot offline",
	Long: `Decode the reply to a "$dat" request without contacting a bridge.

The input is either a raw reply as the bridge sends it (code page 437,
optionally preceded by the banner) or a JSON Lines capture written with
--capture; in a capture every snapshot reply is decoded in turn. Reads
stdin when no file is given.`,
	Example: `  platinum --capture session.jsonl status
  platinum decode session.jsonl

  nc 192.168.1.50 522 <<< '$dat' | platinum decode`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	snapshots, err := snapshotsFrom(data)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("no snapshot replies in input")
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshots)
	}

	for i, snap := range snapshots {
		if len(snapshots) > 1 {
			fmt.Fprintf(out, "# snapshot %d\n", i+1)
		}
		printSnapshot(out, snap)
	}
	return nil
}

// snapshotsFrom returns the decoded snapshots in data, which is either a
// JSON Lines capture or a single raw reply in code page 437
func snapshotsFrom(data []byte) ([]*protocol.Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		reply, err := transport.DecodeWire(data)
		if err != nil {
			return nil, err
		}
		// a session piped from nc still carries the banner
		if _, after, found := strings.Cut(reply, protocol.Banner); found {
			reply = after
		}
		snap := protocol.ParseSnapshot(reply)
		if snap.Empty() {
			return nil, nil
		}
		return []*protocol.Snapshot{snap}, nil
	}

	caps, err := transport.ReadCaptures(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var out []*protocol.Snapshot
	for _, c := range caps {
		if c.Request != protocol.CmdSnapshot || c.Error != "" {
			continue
		}
		out = append(out, protocol.ParseSnapshot(c.Reply))
	}
	return out, nil
}

func printSnapshot(w io.Writer, snap *protocol.Snapshot) {
	fmt.Fprintf(w, "prefix %q, %d lines skipped\n", snap.Prefix, snap.Skipped)
	for _, r := range snap.Rooms {
		fmt.Fprintf(w, "room   %s  %s\n", r.ID, r.Name)
	}
	for _, s := range snap.Scenes {
		fmt.Fprintf(w, "scene  %s  %s\n", s.ID, s.Name)
	}
	for _, s := range snap.Shades {
		fmt.Fprintf(w, "shade  %s  %s (room %s)\n", s.ID, s.Name, s.RoomID)
	}
	for _, s := range snap.States {
		fmt.Fprintf(w, "state  %s  %d\n", s.ShadeID, s.Position)
	}
}
