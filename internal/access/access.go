// Package access decides which clients may use the proxy and which origins
// it may contact.
package access

import (
	"net"
	"sort"
	"strings"
	"sync"
)

// ParseBlacklist converts client addresses from the config into IPs.
// Entries that are not valid IP addresses are returned as invalid.
func ParseBlacklist(entries []string) (ips []net.IP, invalid []string) {
	for _, entry := range entries {
		ip := net.ParseIP(strings.TrimSpace(entry))
		if ip == nil {
			invalid = append(invalid, entry)
			continue
		}
		ips = append(ips, ip)
	}
	return ips, invalid
}

// IsBlacklisted reports whether the host part of remoteAddr is one of ips.
func IsBlacklisted(remoteAddr string, ips []net.IP) (bool, error) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return false, err
	}
	remote := net.ParseIP(host)
	for _, ip := range ips {
		if remote.Equal(ip) {
			return true, nil
		}
	}
	return false, nil
}

// HostBlocklist is the set of origin hosts the proxy refuses to contact.
// Blocking a host also blocks its subdomains.
type HostBlocklist struct {
	mu    sync.RWMutex
	hosts map[string]struct{}
}

func NewHostBlocklist(hosts []string) *HostBlocklist {
	b := &HostBlocklist{hosts: make(map[string]struct{})}
	for _, host := range hosts {
		b.Block(host)
	}
	return b
}

// Block adds host. It returns false for an empty host.
func (b *HostBlocklist) Block(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hosts[host] = struct{}{}
	return true
}

// Unblock removes host and reports whether it was blocked.
func (b *HostBlocklist) Unblock(host string) bool {
	host = normalizeHost(host)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.hosts[host]; !ok {
		return false
	}
	delete(b.hosts, host)
	return true
}

func (b *HostBlocklist) IsBlocked(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for {
		if _, ok := b.hosts[host]; ok {
			return true
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			return false
		}
		host = host[dot+1:]
	}
}

// List returns the blocked hosts in sorted order.
func (b *HostBlocklist) List() []string {
	b.mu.RLock()
	hosts := make([]string, 0, len(b.hosts))
	for host := range b.hosts {
		hosts = append(hosts, host)
	}
	b.mu.RUnlock()

	sort.Strings(hosts)
	return hosts
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}
