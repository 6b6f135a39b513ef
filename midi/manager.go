package midi

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// DefaultScanTimeout bounds a port scan (CoreMIDI can hang)
const DefaultScanTimeout = 3 * time.Second

var (
	ErrScanTimeout = errors.New("MIDI port scan timed out")
	ErrNoPort      = errors.New("no matching MIDI output port")
)

// OutputPorts returns the current output ports, or ErrScanTimeout if the
// driver does not answer within timeout.
func OutputPorts(timeout time.Duration) ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(timeout):
		// User needs to run: sudo killall coreaudiod midiserver
		return nil, errors.WithStack(ErrScanTimeout)
	}
}

// FindOutput returns the first output port whose name contains name,
// case-insensitively. An empty name picks the first port.
func FindOutput(name string, timeout time.Duration) (drivers.Out, error) {
	outs, err := OutputPorts(timeout)
	if err != nil {
		return nil, err
	}
	if port := matchPort(outs, name); port != nil {
		return port, nil
	}
	return nil, errors.Wrapf(ErrNoPort, "looking for %q among %d ports", name, len(outs))
}

func matchPort(outs []drivers.Out, name string) drivers.Out {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range outs {
		if name == "" || strings.Contains(strings.ToLower(p.String()), name) {
			return p
		}
	}
	return nil
}

// CloseDriver releases the registered driver.
func CloseDriver() {
	gomidi.CloseDriver()
}
