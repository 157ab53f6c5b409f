package platform

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
)

// ErrAlreadyRunning indicates another instance already holds the lock.
var ErrAlreadyRunning = errors.New("instance already running")

// InstanceGuard holds the single-instance lock. Its listener doubles as the
// endpoint of the local control API.
type InstanceGuard struct {
	listener net.Listener
}

// ControlAddress returns the loopback address owned by appName.
func ControlAddress(appName string) string {
	return fmt.Sprintf("127.0.0.1:%d", portFromName(appName))
}

// AcquireSingleInstance binds address, or the address derived from appName
// when address is empty. A bind failure means another instance owns it.
func AcquireSingleInstance(appName, address string) (*InstanceGuard, error) {
	if address == "" {
		address = ControlAddress(appName)
	}
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAlreadyRunning, err)
	}
	return &InstanceGuard{listener: listener}, nil
}

// Listener returns the bound listener.
func (guard *InstanceGuard) Listener() net.Listener {
	return guard.listener
}

// Release frees the single instance lock.
func (guard *InstanceGuard) Release() error {
	if guard == nil || guard.listener == nil {
		return nil
	}
	err := guard.listener.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Address returns the bound address.
func (guard *InstanceGuard) Address() string {
	if guard == nil || guard.listener == nil {
		return ""
	}
	return guard.listener.Addr().String()
}

func portFromName(appName string) int {
	const (
		minPort = 20000
		maxPort = 39999
	)
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(appName))
	rangeSize := maxPort - minPort + 1
	return minPort + int(hash.Sum32()%uint32(rangeSize))
}
