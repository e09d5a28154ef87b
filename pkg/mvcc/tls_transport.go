package mvcc

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/hashicorp/raft"
)

// tlsStreamLayer adapts a TLS listener/dialer pair to raft.StreamLayer,
// letting NewStore hand raft.NewNetworkTransport an encrypted, mutually
// authenticated connection in place of the plain raft.NewTCPTransport
// used when cfg.TLS is nil.
type tlsStreamLayer struct {
	net.Listener
	tlsConfig *tls.Config
}

func newTLSStreamLayer(bindAddr string, tlsConfig *tls.Config) (*tlsStreamLayer, error) {
	ln, err := tls.Listen("tcp", bindAddr, tlsConfig)
	if err != nil {
		return nil, err
	}
	return &tlsStreamLayer{Listener: ln, tlsConfig: tlsConfig}, nil
}

// Dial implements raft.StreamLayer, presenting this peer's client
// certificate to the remote peer's listener.
func (t *tlsStreamLayer) Dial(address raft.ServerAddress, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	return tls.DialWithDialer(dialer, "tcp", string(address), t.tlsConfig)
}
