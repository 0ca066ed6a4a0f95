// Package validator composes the codec, the store, and a date policy into
// the single admission decision described in spec.md §4.C. It is not
// grounded on one specific teacher file (the composition is domain-specific
// to this spec); it follows the teacher's general short-circuit,
// wrapped-error style seen throughout internal/persistence/postgres.
package validator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edgegate/ticketgate/internal/codec"
	"github.com/edgegate/ticketgate/internal/config"
	"github.com/edgegate/ticketgate/internal/metrics"
	"github.com/edgegate/ticketgate/internal/model"
	"github.com/edgegate/ticketgate/internal/store"
)

// Clock returns the current venue-local date as YYYYMMDD (structural check)
// and YYYY-MM-DD (stored booking_date comparison). Exposed as an interface
// so tests can pin "today".
type Clock interface {
	TodayCompact() string // YYYYMMDD
	TodayDashed() string  // YYYY-MM-DD
}

type systemClock struct{ loc *time.Location }

func (c systemClock) TodayCompact() string { return time.Now().In(c.loc).Format("20060102") }
func (c systemClock) TodayDashed() string  { return time.Now().In(c.loc).Format("2006-01-02") }

// NewSystemClock returns a Clock backed by the real wall clock in loc.
func NewSystemClock(loc *time.Location) Clock { return systemClock{loc: loc} }

// Validator validates scans for one gate against one gate's Store.
type Validator struct {
	codec    *codec.Codec
	store    *store.Store
	cfg      *config.Config
	gateCode string
	gateName model.GateID
	clock    Clock
	metrics  *metrics.Registry
	log      zerolog.Logger
}

// New builds a Validator for a single gate. reg may be nil, in which case
// admission decisions are not counted (e.g. the one-shot validate CLI,
// which has no long-lived /metrics surface to serve them from).
func New(c *codec.Codec, st *store.Store, cfg *config.Config, gateName model.GateID, clock Clock, reg *metrics.Registry, logger zerolog.Logger) (*Validator, error) {
	code, ok := cfg.CodeForGate(string(gateName))
	if !ok {
		return nil, fmt.Errorf("no gate code configured for gate %q", gateName)
	}
	return &Validator{
		codec:    c,
		store:    st,
		cfg:      cfg,
		gateCode: code,
		gateName: gateName,
		clock:    clock,
		metrics:  reg,
		log:      logger,
	}, nil
}

const (
	reasonInvalidDate         = "Invalid date — Ticket not valid for today"
	reasonAttractionMismatch  = "Attraction mismatch — Ticket not valid for %s"
	reasonAlreadyScanned      = "QR already scanned — All entries used"
	reasonNotFound            = "Invalid QR — Ticket not found"
	reasonValid               = "Valid Entry"
)

// Validate runs the 8-step decision procedure of spec.md §4.C and writes
// exactly one scan_history row before returning, regardless of outcome.
func (v *Validator) Validate(ctx context.Context, ticketString string) model.Decision {
	// Step 1: structural date check, BEFORE any MAC computation, so a
	// replayed ticket from another day is rejected without even hashing it.
	dateCompact := leadingDateSegment(ticketString)
	if dateCompact == "" || dateCompact != v.clock.TodayCompact() {
		return v.fail("", reasonInvalidDate)
	}

	// Step 2: parse + MAC verify.
	parsed := codec.Parse(v.codec, ticketString)
	if !parsed.Valid {
		reason := "Invalid QR — " + describeParseError(parsed.Err)
		ref := parsed.ReferenceNo
		return v.fail(ref, reason)
	}
	ref := parsed.ReferenceNo

	// Step 3/4: gate mapping + persons_allowed.
	personsAllowed := parsed.GateInfo[v.gateCode]
	if personsAllowed == 0 {
		return v.fail(ref, fmt.Sprintf(reasonAttractionMismatch, v.gateName))
	}

	// Step 5: store lookup, offline birth if unknown.
	existing, err := v.store.Get(ctx, ref)
	if err != nil {
		v.log.Error().Err(err).Str("ref", ref).Msg("store lookup failed")
		return v.fail(ref, reasonNotFound)
	}
	bookingDate := compactToDashed(parsed.Date)
	if existing == nil {
		pax := make(map[model.GateID]int, len(model.Gates))
		for code, count := range parsed.GateInfo {
			if g, ok := gateForCode(v.cfg, code); ok {
				pax[g] = count
			}
		}
		if err := v.store.CreateFromParsed(ctx, ref, bookingDate, pax); err != nil {
			v.log.Error().Err(err).Str("ref", ref).Msg("offline birth insert failed")
			return v.fail(ref, reasonNotFound)
		}
		existing, err = v.store.Get(ctx, ref)
		if err != nil || existing == nil {
			return v.fail(ref, reasonNotFound)
		}
	} else if existing.Pax(v.gateName) != personsAllowed {
		// The server is authoritative on capacity; log the mismatch but
		// trust the stored value, per spec.md §4.C step 5.
		v.log.Warn().
			Str("ref", ref).
			Int("parsed_pax", personsAllowed).
			Int("stored_pax", existing.Pax(v.gateName)).
			Msg("parsed ticket capacity disagrees with stored capacity; trusting store")
	}

	// Step 6: second date check against the stored booking_date (defense
	// in depth).
	if existing.BookingDate != v.clock.TodayDashed() {
		return v.fail(ref, reasonInvalidDate)
	}

	// Step 7: try_admit.
	result, err := v.store.TryAdmit(ctx, ref)
	if err != nil {
		v.log.Error().Err(err).Str("ref", ref).Msg("try_admit failed")
		return v.fail(ref, reasonNotFound)
	}

	switch result.Status {
	case model.Admitted:
		v.store.LogScan(ctx, ref, model.ScanSuccess.String(), reasonValid)
		v.recordAdmission(model.ScanSuccess.String())
		return model.Decision{
			Result:      model.ScanSuccess,
			Reason:      reasonValid,
			ReferenceNo: ref,
			Gate:        v.gateName,
			Pax:         result.Pax,
			UsedAfter:   result.UsedAfter,
		}
	case model.NotValidHere:
		return v.fail(ref, fmt.Sprintf(reasonAttractionMismatch, v.gateName))
	case model.NotFound:
		return v.fail(ref, reasonNotFound)
	default: // Exhausted
		return v.fail(ref, reasonAlreadyScanned)
	}
}

func (v *Validator) fail(ref, reason string) model.Decision {
	v.store.LogScan(context.Background(), ref, model.ScanFailed.String(), reason)
	v.recordAdmission(model.ScanFailed.String())
	return model.Decision{
		Result:      model.ScanFailed,
		Reason:      reason,
		ReferenceNo: ref,
		Gate:        v.gateName,
	}
}

func (v *Validator) recordAdmission(status string) {
	if v.metrics == nil {
		return
	}
	v.metrics.AdmissionsTotal.WithLabelValues(string(v.gateName), status).Inc()
}

func leadingDateSegment(ticketString string) string {
	idx := strings.IndexByte(ticketString, '-')
	if idx <= 0 {
		return ""
	}
	return ticketString[:idx]
}

func compactToDashed(date string) string {
	if len(date) != 8 {
		return date
	}
	return date[:4] + "-" + date[4:6] + "-" + date[6:8]
}

func describeParseError(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func gateForCode(cfg *config.Config, code string) (model.GateID, bool) {
	for _, g := range cfg.Gates {
		if g.Code == code {
			return model.GateID(g.Name), true
		}
	}
	return "", false
}
