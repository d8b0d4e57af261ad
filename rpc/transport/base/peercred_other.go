//go:build !linux

package base

import (
	"errors"
	"net"
)

// PeerCredentials is only supported on linux
func PeerCredentials(*net.UnixConn) (Credentials, error) {
	return Credentials{}, errors.New("peer credentials are not supported on this platform")
}
