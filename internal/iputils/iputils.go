package iputils

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// GetLocalIPv4Addresses returns a slice of local IPv4 addresses of the computer
func GetLocalIPv4Addresses() ([]string, error) {
	var ipv4Addresses []string

	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range interfaces {
		addrs, err := iface.Addrs()
		if err != nil {
			return nil, err
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP == nil || ipNet.IP.IsLoopback() {
				continue
			}

			ip := ipNet.IP.To4()
			if ip != nil && !ip.IsLinkLocalUnicast() {
				ipv4Addresses = append(ipv4Addresses, ip.String())
			}
		}
	}

	return ipv4Addresses, nil
}

// ClientID names this machine for a broker: prefix followed by the first local address,
// or the host name when the machine has no network address.
func ClientID(prefix string) string {
	if addrs, err := GetLocalIPv4Addresses(); err == nil && len(addrs) > 0 {
		return fmt.Sprintf("%s-%s", prefix, addrs[0])
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s-%s", prefix, strings.ReplaceAll(host, " ", "_"))
}
