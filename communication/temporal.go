package communication

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"github.com/luphord/remcall"
	"github.com/luphord/remcall/schema"
)

// The three temporal primitives are encoded distinctly rather than all as
// one generic timestamp, since each names a different slice of a
// time.Time: Date is a day, Time is a time of day, Datetime is both.
const nanosPerDay = int64(24 * time.Hour)

func (s *Sender) writeTemporal(p *schema.Primitive, value any) error {
	t, ok := value.(time.Time)
	if !ok {
		return fmt.Errorf("communication: expected time.Time for %q, got %T", p.TypeName(), value)
	}
	switch p {
	case schema.Date:
		days := t.UTC().Truncate(24 * time.Hour).Unix() / 86400
		return s.w.WriteInt32(int32(days))
	case schema.Time:
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return s.w.WriteInt64(int64(t.Sub(midnight)))
	case schema.Datetime:
		return s.w.WriteInt64(t.UTC().UnixNano())
	default:
		return fmt.Errorf("communication: %q is not a temporal primitive", p.TypeName())
	}
}

func (r *Receiver) readTemporal(p *schema.Primitive) (time.Time, error) {
	t, err := r.readTemporalValue(p)
	if err != nil {
		return t, err
	}
	traceTemporal(p, t)
	return t, nil
}

func (r *Receiver) readTemporalValue(p *schema.Primitive) (time.Time, error) {
	switch p {
	case schema.Date:
		days, err := r.r.ReadInt32()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(int64(days)*86400, 0).UTC(), nil
	case schema.Time:
		nanos, err := r.r.ReadInt64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(0, nanos).UTC(), nil
	case schema.Datetime:
		nanos, err := r.r.ReadInt64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(0, nanos).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("communication: %q is not a temporal primitive", p.TypeName())
	}
}

// traceTemporal logs a decoded temporal value at debug level, re-parsing its
// rendered string form through dateparse's layout detection as a sanity
// check that the value this side just decoded reads back the way any other
// consumer of the wire format's timestamps would parse it.
func traceTemporal(p *schema.Primitive, t time.Time) {
	if !remcall.Verbose {
		return
	}
	rendered := t.Format(time.RFC3339Nano)
	reparsed, err := dateparse.ParseAny(rendered)
	if err != nil {
		remcall.Tracef("communication: decoded %s %s (failed to reparse: %v)", p.TypeName(), rendered, err)
		return
	}
	remcall.Tracef("communication: decoded %s %s (reparsed as %s)", p.TypeName(), rendered, reparsed.Format(time.RFC3339Nano))
}
