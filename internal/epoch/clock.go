// Package epoch maps wall-clock instants to and from protocol epochs.
//
// An epoch is a fixed-length slot (15 minutes by default) counted from the service
// start, which the protocol expresses as an NTP timestamp (seconds since 1900-01-01).
// Every other component consumes or produces epoch-relative instants through Clock.
package epoch

import (
	"math"
	"time"
)

// NTPUnixOffset is the number of seconds between the NTP era (1900-01-01) and the Unix epoch.
const NTPUnixOffset int64 = 2208988800

// Clock converts between instants, epochs and calendar dates. It holds no mutable
// state and is safe for concurrent use.
type Clock struct {
	startUnix   int64
	durationSec int64
	now         func() time.Time
}

// Option customizes a Clock.
type Option func(*Clock)

// WithNow replaces the wall clock used by CurrentEpoch.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		c.now = now
	}
}

// New creates a Clock for a service started at serviceTimeStartNTP (NTP seconds) with
// the given epoch duration. Durations are truncated to whole seconds, minimum one second.
func New(serviceTimeStartNTP int64, epochDuration time.Duration, opts ...Option) *Clock {
	durationSec := int64(epochDuration / time.Second)
	if durationSec < 1 {
		durationSec = 1
	}

	c := &Clock{
		startUnix:   serviceTimeStartNTP - NTPUnixOffset,
		durationSec: durationSec,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ServiceTimeStart returns the instant of epoch 0.
func (c *Clock) ServiceTimeStart() time.Time {
	return time.Unix(c.startUnix, 0).UTC()
}

// EpochDuration returns the length of one epoch.
func (c *Clock) EpochDuration() time.Duration {
	return time.Duration(c.durationSec) * time.Second
}

// EpochsPerDay returns how many epochs fit in 24 hours.
func (c *Clock) EpochsPerDay() int {
	return int(86400 / c.durationSec)
}

// AtEpoch returns the instant at which epochID starts.
func (c *Clock) AtEpoch(epochID uint32) time.Time {
	return time.Unix(c.startUnix+int64(epochID)*c.durationSec, 0).UTC()
}

// InstantToEpoch returns the epoch containing t. Instants before the service start
// map to epoch 0.
func (c *Clock) InstantToEpoch(t time.Time) uint32 {
	elapsed := t.Unix() - c.startUnix
	if elapsed < 0 {
		return 0
	}
	epochID := elapsed / c.durationSec
	if epochID > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(epochID)
}

// CurrentEpoch returns the epoch containing the current wall-clock time.
func (c *Clock) CurrentEpoch() uint32 {
	return c.InstantToEpoch(c.now())
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	return c.now()
}

// DateOfEpoch returns the UTC calendar date (midnight) on which epochID starts.
func (c *Clock) DateOfEpoch(epochID uint32) time.Time {
	return truncateToDate(c.AtEpoch(epochID))
}

// EpochsRemainingToday returns the number of epochs starting on the same UTC day as
// epochID, counting epochID itself.
func (c *Clock) EpochsRemainingToday(epochID uint32) int {
	start := c.AtEpoch(epochID)
	nextMidnight := truncateToDate(start).AddDate(0, 0, 1)
	remaining := nextMidnight.Unix() - start.Unix()
	return int((remaining + c.durationSec - 1) / c.durationSec)
}

// NTPSeconds returns t as seconds since the NTP era.
func NTPSeconds(t time.Time) int64 {
	return t.Unix() + NTPUnixOffset
}

// NTPTime16 returns the 16 least significant bits of t's NTP seconds, the truncated
// time field carried by authenticated requests.
func NTPTime16(t time.Time) uint16 {
	return uint16(NTPSeconds(t) & 0xFFFF)
}

// Time16Distance returns the wrap-aware distance in seconds between two truncated
// 16-bit time fields.
func Time16Distance(a, b uint16) time.Duration {
	d := a - b
	if d > 0x8000 {
		d = b - a
	}
	return time.Duration(d) * time.Second
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
