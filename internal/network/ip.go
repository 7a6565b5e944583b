package network

import (
	"fmt"
	"net"
	"strings"

	"github.com/jackpal/gateway"
)

// GetLocalIP returns the machine's LAN-facing IPv4 address. It prefers the
// interface on the default gateway's subnet, then the address picked for an
// outbound UDP route, then the first non-loopback interface address.
func GetLocalIP() string {
	if ip, err := gatewayLocalIP(); err == nil {
		return ip.String()
	}

	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		localAddr := conn.LocalAddr().(*net.UDPAddr)
		return localAddr.IP.String()
	}

	addrs, _ := net.InterfaceAddrs()
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				ip := ipnet.IP.String()
				if !strings.HasPrefix(ip, "169.254.") {
					return ip
				}
			}
		}
	}
	return "127.0.0.1"
}

func gatewayLocalIP() (net.IP, error) {
	gwIP, err := gateway.DiscoverGateway()
	if err != nil {
		return nil, fmt.Errorf("discover gateway: %w", err)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	return localIPForGateway(gwIP, ifaces)
}

// localIPForGateway finds the IPv4 address of an up interface whose subnet
// contains gwIP.
func localIPForGateway(gwIP net.IP, ifaces []net.Interface) (net.IP, error) {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		if ip := matchSubnet(gwIP, addrs); ip != nil {
			return ip, nil
		}
	}
	return nil, fmt.Errorf("no local IPv4 address on the subnet of gateway %s", gwIP)
}

func matchSubnet(gwIP net.IP, addrs []net.Addr) net.IP {
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ipv4 := ipnet.IP.To4()
		if ipv4 == nil || ipv4.IsLoopback() || !ipv4.IsGlobalUnicast() {
			continue
		}
		if ipnet.Contains(gwIP) {
			return ipv4
		}
	}
	return nil
}
