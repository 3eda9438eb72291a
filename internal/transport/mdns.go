// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"net"

	applog "tuner/internal/log"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type under which the WebSocket endpoint is
// announced.
const ServiceType = "_tuner._tcp"

// Advertiser announces the WebSocket endpoint over mDNS so dashboards on
// the local network can find it.
type Advertiser struct {
	server *mdns.Server
	name   string
	port   int
}

// NewAdvertiser starts answering mDNS queries for instance on port. txt
// records are published verbatim, for example "path=/ws".
func NewAdvertiser(instance string, port int, txt []string) (*Advertiser, error) {
	if port <= 0 {
		return nil, fmt.Errorf("mdns: invalid port %d", port)
	}

	ips, err := localIPs()
	if err != nil {
		return nil, fmt.Errorf("mdns: failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, ips, txt)
	if err != nil {
		return nil, fmt.Errorf("mdns: failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("mdns: failed to create server: %w", err)
	}

	applog.Infof("Advertising mDNS service %q on port %d (type %s)", instance, port, ServiceType)
	return &Advertiser{server: server, name: instance, port: port}, nil
}

// Close stops answering queries.
func (a *Advertiser) Close() error {
	applog.Debugf("Stopping mDNS advertisement for %q", a.name)
	return a.server.Shutdown()
}

// localIPs returns the addresses of the interfaces that are up, excluding
// loopback. An empty result lets the mdns package resolve the hostname.
func localIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	return ips, nil
}
