package iputils

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAddressesAreIPv4(t *testing.T) {
	addrs, err := GetLocalIPv4Addresses()
	require.NoError(t, err)
	for _, a := range addrs {
		ip := net.ParseIP(a)
		require.NotNil(t, ip, a)
		assert.NotNil(t, ip.To4(), a)
		assert.False(t, ip.IsLoopback(), a)
	}
}

func TestClientID(t *testing.T) {
	id := ClientID("recorder")
	assert.True(t, strings.HasPrefix(id, "recorder-"), id)
	assert.NotContains(t, id, " ")
}
