// Package iputil converts IPv4 addresses and CIDRs to the numeric bounds
// stored in an interval tree.
package iputil

import (
	"encoding/binary"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// IP2Long returns the IPv4 address as a big-endian uint32.
func IP2Long(ip string) (uint32, error) {
	v4 := net.ParseIP(ip).To4()
	if v4 == nil {
		return 0, errors.Errorf("not an IPv4 address: '%s'", ip)
	}
	return binary.BigEndian.Uint32(v4), nil
}

// Long2IP is the inverse of IP2Long.
func Long2IP(n uint32) string {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, n)
	return ip.String()
}

// CIDRToRange returns the first and last address covered by an IPv4 CIDR.
func CIDRToRange(cidr string) (start, end uint32, err error) {
	_, ipv4Net, err := net.ParseCIDR(cidr)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "could not convert CIDR '%s' to IP range", cidr)
	}
	if ipv4Net.IP.To4() == nil || len(ipv4Net.Mask) != net.IPv4len {
		return 0, 0, errors.Errorf("not an IPv4 CIDR: '%s'", cidr)
	}

	mask := binary.BigEndian.Uint32(ipv4Net.Mask)
	start = binary.BigEndian.Uint32(ipv4Net.IP.To4())
	end = (start & mask) | (mask ^ 0xffffffff)

	return start, end, nil
}

// CIDRToIPRange is CIDRToRange with both ends formatted as dotted quads.
func CIDRToIPRange(cidr string) (startIP, endIP string, err error) {
	start, end, err := CIDRToRange(cidr)
	if err != nil {
		return "", "", err
	}
	return Long2IP(start), Long2IP(end), nil
}

// Range parses either a CIDR or a single IPv4 address. A single address
// becomes a one-address range.
func Range(s string) (start, end uint32, err error) {
	if strings.ContainsRune(s, '/') {
		return CIDRToRange(s)
	}

	n, err := IP2Long(s)
	if err != nil {
		return 0, 0, err
	}
	return n, n, nil
}
