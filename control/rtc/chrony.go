package rtc

import (
	"fmt"
	"net"
	"time"

	"github.com/facebookincubator/ntp/protocol/chrony"
)

const leapUnsynchronized = 3 // From chrony/ntp.h.

// CheckSync asks the chronyd at addr (usually localhost:323) whether the system clock is
// synchronized.  It returns the tracking report either way, and an error wrapping
// ErrUnsynchronized if it is not.
func CheckSync(addr string) (*chrony.ReplyTracking, error) {
	conn, err := net.DialTimeout("udp", addr, time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	c := chrony.Client{Sequence: 1, Connection: conn}
	res, err := c.Communicate(chrony.NewTrackingPacket())
	if err != nil {
		return nil, fmt.Errorf("get tracking info: communicate: %w", err)
	}
	tracking, ok := res.(*chrony.ReplyTracking)
	if !ok {
		return nil, fmt.Errorf("tracking reply was of unexpected type: %#v", res)
	}
	return tracking, checkTracking(tracking)
}

func checkTracking(t *chrony.ReplyTracking) error {
	if t.LeapStatus == leapUnsynchronized {
		return fmt.Errorf("chronyd tracking %s at stratum %d: %w", IntRefID(t.RefID), t.Stratum, ErrUnsynchronized)
	}
	return nil
}

// RefID formats a chrony reference ID.  Reference clocks use printable ASCII names ("GPS",
// "PPS"); everything else is an address.
func RefID(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		last := len(v4)
		for i, b := range v4 {
			if b == 0 && i > 0 {
				last = i
				break
			}
			if b < '0' || b > 'z' {
				last = 0
				break
			}
		}
		if last > 0 {
			return string(v4[0:last])
		}
	}
	return ip.String()
}

// IntRefID is RefID for the integer form found in tracking reports.
func IntRefID(id uint32) string {
	return RefID(net.IPv4(byte((id>>24)&0xff), byte((id>>16)&0xff), byte((id>>8)&0xff), byte(id&0xff)))
}
