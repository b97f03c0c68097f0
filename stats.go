package ringd

import (
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stats
// 事件循环计数器，循环线程写，其他协程可随时读。
type Stats struct {
	accepted    atomic.Uint64
	received    atomic.Uint64
	sent        atomic.Uint64
	responses   atomic.Uint64
	closed      atomic.Uint64
	peerErrors  atomic.Uint64
	errors      atomic.Uint64
	parked      atomic.Uint64
	completions atomic.Uint64
}

type Snapshot struct {
	Accepted      uint64
	BytesReceived uint64
	BytesSent     uint64
	Responses     uint64
	Closed        uint64
	PeerErrors    uint64
	Errors        uint64
	Parked        uint64
	Completions   uint64
}

func (stats *Stats) Snapshot() Snapshot {
	return Snapshot{
		Accepted:      stats.accepted.Load(),
		BytesReceived: stats.received.Load(),
		BytesSent:     stats.sent.Load(),
		Responses:     stats.responses.Load(),
		Closed:        stats.closed.Load(),
		PeerErrors:    stats.peerErrors.Load(),
		Errors:        stats.errors.Load(),
		Parked:        stats.parked.Load(),
		Completions:   stats.completions.Load(),
	}
}

func (s Snapshot) Add(o Snapshot) Snapshot {
	return Snapshot{
		Accepted:      s.Accepted + o.Accepted,
		BytesReceived: s.BytesReceived + o.BytesReceived,
		BytesSent:     s.BytesSent + o.BytesSent,
		Responses:     s.Responses + o.Responses,
		Closed:        s.Closed + o.Closed,
		PeerErrors:    s.PeerErrors + o.PeerErrors,
		Errors:        s.Errors + o.Errors,
		Parked:        s.Parked + o.Parked,
		Completions:   s.Completions + o.Completions,
	}
}

func (s Snapshot) String() string {
	p := message.NewPrinter(language.English)
	return p.Sprintf(
		"accepted %d, responses %d, closed %d, received %s, sent %s, peer errors %d, errors %d, parked %d, completions %d",
		s.Accepted, s.Responses, s.Closed,
		humanize.IBytes(s.BytesReceived), humanize.IBytes(s.BytesSent),
		s.PeerErrors, s.Errors, s.Parked, s.Completions,
	)
}
