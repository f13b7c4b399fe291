// Package discovery implements the UDP LAN-discovery protocol: a client
// broadcasts the workspace name it is looking for, and the server whose
// workspace name matches replies with its own TCP address.
package discovery

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Port is the fixed UDP port both sides use.
const Port = 54000

const maxDatagramSize = 1024

// Broadcast sends workspaceName to the LAN broadcast address on Port and
// waits up to timeout for a single reply datagram, which is the server's
// TCP address as text.
func Broadcast(workspaceName string, timeout time.Duration) (string, error) {
	broadcastAddr, err := subnetBroadcastAddr()
	if err != nil {
		return "", errors.Wrap(err, "computing broadcast address")
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return "", errors.Wrap(err, "opening discovery socket")
	}
	defer conn.Close()

	dst := &net.UDPAddr{IP: broadcastAddr, Port: Port}
	if _, err := conn.WriteToUDP([]byte(workspaceName), dst); err != nil {
		return "", errors.Wrap(err, "broadcasting workspace name")
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, maxDatagramSize)
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		return "", errors.Wrap(err, "waiting for discovery reply")
	}
	return string(buf[:n]), nil
}

// Respond listens on 0.0.0.0:Port and, for every datagram whose payload
// equals workspaceName, replies with serverAddr. Runs until ctx is
// cancelled.
func Respond(ctx context.Context, workspaceName, serverAddr string, logger *logrus.Logger) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: Port})
	if err != nil {
		return errors.Wrap(err, "binding discovery listener")
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	logger.Infof("network discovery listening on port %d", Port)

	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.WithError(err).Warn("discovery read failed")
			continue
		}
		if string(buf[:n]) != workspaceName {
			continue
		}
		if _, err := conn.WriteToUDP([]byte(serverAddr), addr); err != nil {
			logger.WithError(err).Warn("discovery reply failed")
		}
	}
}

// subnetBroadcastAddr computes (local_ipv4 & 255.255.255.0) | ~255.255.255.0
// for the first non-loopback IPv4 interface address found.
func subnetBroadcastAddr() (net.IP, error) {
	ip, err := localIPv4()
	if err != nil {
		return nil, err
	}

	mask := net.IPv4Mask(255, 255, 255, 0)
	broadcast := make(net.IP, net.IPv4len)
	ip4 := ip.To4()
	for i := 0; i < net.IPv4len; i++ {
		broadcast[i] = (ip4[i] & mask[i]) | ^mask[i]
	}
	return broadcast, nil
}

func localIPv4() (net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, errors.Wrap(err, "listing local interfaces")
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4, nil
		}
	}
	return nil, errors.New("no non-loopback IPv4 address found")
}
