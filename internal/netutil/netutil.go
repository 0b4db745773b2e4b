// Package netutil contains small network address helpers used by the serve
// command's startup logging.
package netutil

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// DetectHostIPv4 attempts to determine the host IPv4 address by finding the
// first non-loopback device with an assigned IPv4 address.
func DetectHostIPv4() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", errors.WithStack(err)
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() == nil {
				continue
			}
			return ipnet.IP.String(), nil
		}
	}
	return "", errors.New("cannot detect host IPv4 address")
}

func SplitHostPort(addr string) (string, int, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	p, _ := strconv.Atoi(port)
	return host, p, nil
}

type Address struct {
	Host string
	Port int
}

func (a *Address) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

func (a *Address) IsUnspecified() bool {
	return net.ParseIP(a.Host).IsUnspecified()
}

func ParseAddr(addr string) (*Address, error) {
	host, port, err := SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	return &Address{host, port}, nil
}
