package mvcc

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/synerthink/dotlanth/pkg/security"
	"github.com/synerthink/dotlanth/pkg/storage"
)

func newTestPeerTLSConfig(t *testing.T) *security.CapabilityAuthority {
	t.Helper()
	require.NoError(t, security.SetClusterEncryptionKey(security.DeriveKeyFromClusterID("mvcc-tls-test")))

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ca := security.NewCapabilityAuthority(store)
	require.NoError(t, ca.Initialize())
	return ca
}

func TestNewStoreWithTLSTransport(t *testing.T) {
	ca := newTestPeerTLSConfig(t)
	peerCert, err := ca.IssueRaftPeerCertificate("node1", []string{"localhost"}, []net.IP{net.ParseIP("127.0.0.1")})
	require.NoError(t, err)

	s, err := NewStore(Config{
		NodeID:   "node1",
		DataDir:  t.TempDir(),
		BindAddr: "127.0.0.1:0",
		TLS:      ca.PeerTLSConfig(peerCert),
	})
	require.NoError(t, err)
	defer s.Shutdown()

	v, err := s.Transaction([]Op{{Key: "k", Value: []byte("v")}})
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}
