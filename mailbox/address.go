// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package mailbox

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/tochemey/gopulse/internal/tcp"
)

const (
	// NetworkUnix is the unix domain socket network
	NetworkUnix = "unix"
	// NetworkTCP is the TCP network
	NetworkTCP = "tcp"
)

// Address locates a mailbox server.
type Address struct {
	Network string
	Address string
}

// String returns the address as network://address
func (a Address) String() string {
	return a.Network + "://" + a.Address
}

// IsZero reports whether the address is unset
func (a Address) IsZero() bool {
	return a.Address == ""
}

// ParseAddress parses an address written by Address.String. A bare host:port
// is taken as TCP.
func ParseAddress(value string) (Address, error) {
	network, address, found := strings.Cut(value, "://")
	if !found {
		network, address = NetworkTCP, value
	}

	switch network {
	case NetworkUnix, NetworkTCP:
	default:
		return Address{}, fmt.Errorf("unsupported network (%s)", network)
	}
	if address == "" {
		return Address{}, fmt.Errorf("missing address in (%s)", value)
	}
	return Address{Network: network, Address: address}, nil
}

// AddressFor returns the address an actor listens on. On POSIX systems it is
// a unix socket in dir named after a hash of the actor id, elsewhere an
// ephemeral loopback TCP port.
func AddressFor(dir, aid string) Address {
	if runtime.GOOS == "windows" {
		return Address{Network: NetworkTCP, Address: "127.0.0.1:0"}
	}
	if dir == "" {
		dir = os.TempDir()
	}
	name := fmt.Sprintf("gopulse-%016x.sock", xxh3.HashString(aid))
	return Address{Network: NetworkUnix, Address: filepath.Join(dir, name)}
}

// Listen binds addr and returns the listener with the address peers should
// dial. A stale unix socket file is removed first.
func Listen(addr Address) (net.Listener, Address, error) {
	if addr.Network == NetworkUnix {
		if err := os.Remove(addr.Address); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, Address{}, fmt.Errorf("failed to remove stale socket (%s): %w", addr.Address, err)
		}
	}

	listener, err := net.Listen(addr.Network, addr.Address)
	if err != nil {
		return nil, Address{}, err
	}

	bound := Address{Network: addr.Network, Address: listener.Addr().String()}
	if addr.Network == NetworkTCP {
		advertised, err := tcp.Advertise(bound.Address)
		if err != nil {
			_ = listener.Close()
			return nil, Address{}, err
		}
		bound.Address = advertised
	}
	return listener, bound, nil
}
