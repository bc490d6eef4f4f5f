// Package config manages the platinum CLI configuration file.
//
// The file names one or more controllers and tunes the move-and-verify
// loop. It holds connection settings only; rooms, scenes, and shade
// positions always come from the controller.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/platinum/config.yaml or $HOME/.config/platinum/config.yaml
//   - macOS: $HOME/.config/platinum/config.yaml
//   - Windows: %LOCALAPPDATA%\platinum\config.yaml
//
// # Format
//
//	version: 1
//	default_hub: living
//	hubs:
//	  living:
//	    address: 192.168.1.50
//	    port: 522
//	    timeout: 10s
//	preferences:
//	  settle_delay: 5s
//	  max_attempts: 3
//	  log_level: info
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	name, hub, err := cfg.ResolveHub("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s -> %s:%d\n", name, hub.Address, hub.EffectivePort())
//
// Save writes to a temporary file and renames it into place.
package config
