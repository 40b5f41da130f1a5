package geocode

import (
	"context"
	"log/slog"
	"time"

	"salesreport/internal/metrics"
	"salesreport/internal/table"
)

// Output column names.
const (
	LatitudeColumn  = "latitude"
	LongitudeColumn = "longitude"
)

// EnrichOptions names the place columns and bounds each lookup.
type EnrichOptions struct {
	CityColumn   string
	RegionColumn string
	Timeout      time.Duration // per lookup; 0 means none
	Job          string        // metrics label
	Logger       *slog.Logger
}

// EnrichStats counts distinct places by outcome.
type EnrichStats struct {
	Places int
	Hits   int
	Misses int
	Errors int
}

// Enrich returns t with latitude and longitude columns. Each distinct
// (city, region) pair is looked up once. Rows whose place is missing, unknown
// or failed to resolve get missing coordinates; lookup failures are logged
// and counted, never returned. Only a canceled ctx or an absent place column
// is an error.
func Enrich(ctx context.Context, t *table.Table, g Geocoder, opt EnrichOptions) (*table.Table, EnrichStats, error) {
	var st EnrichStats
	if err := t.Require(opt.CityColumn, opt.RegionColumn); err != nil {
		return nil, st, err
	}
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ci, _ := t.ColumnIndex(opt.CityColumn)
	ri, _ := t.ColumnIndex(opt.RegionColumn)

	resolved := map[Key]resolution{}
	lat := make([]table.Value, t.Len())
	lon := make([]table.Value, t.Len())

	for i := 0; i < t.Len(); i++ {
		city, region := t.At(i, ci), t.At(i, ri)
		if city.IsMissing() || region.IsMissing() {
			continue
		}
		k := Key{City: city.String(), Region: region.String()}
		r, seen := resolved[k]
		if !seen {
			if err := ctx.Err(); err != nil {
				return nil, st, err
			}
			r = lookup(ctx, g, k, opt, log, &st)
			resolved[k] = r
		}
		if r.ok {
			lat[i] = table.Number(r.c.Lat)
			lon[i] = table.Number(r.c.Lon)
		}
	}

	out, err := t.WithColumn(LatitudeColumn, lat)
	if err != nil {
		return nil, st, err
	}
	out, err = out.WithColumn(LongitudeColumn, lon)
	if err != nil {
		return nil, st, err
	}
	log.Debug("geocode: enriched", "places", st.Places, "hits", st.Hits, "misses", st.Misses, "errors", st.Errors)
	return out, st, nil
}

type resolution struct {
	c  Coord
	ok bool
}

func lookup(ctx context.Context, g Geocoder, k Key, opt EnrichOptions, log *slog.Logger, st *EnrichStats) (r resolution) {
	st.Places++
	lctx := ctx
	if opt.Timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, opt.Timeout)
		defer cancel()
	}
	c, found, err := g.Lookup(lctx, k.City, k.Region)
	switch {
	case err != nil:
		st.Errors++
		metrics.RecordGeocode(opt.Job, "error")
		log.Warn("geocode: lookup failed", "place", k.String(), "err", err)
	case !found:
		st.Misses++
		metrics.RecordGeocode(opt.Job, "miss")
	default:
		st.Hits++
		metrics.RecordGeocode(opt.Job, "hit")
		r.c, r.ok = c, true
	}
	return r
}
