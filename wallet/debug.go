package wallet

import "github.com/ebourg/hathor-wallet/wallet/log"

// SetDebug turns verbose transition logging on or off.
func (g *Agent) SetDebug(debug bool) {
	log.SetVerbose(debug)
}
