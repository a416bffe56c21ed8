//go:build !unix

package irbridge

import "net"

func listenConfig() net.ListenConfig {
	return net.ListenConfig{}
}
