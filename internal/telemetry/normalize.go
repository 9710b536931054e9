package telemetry

import (
	"errors"
	"math"
	"time"

	"github.com/tidwall/gjson"
)

var (
	// ErrMalformedPayload is returned when the payload is not valid JSON.
	ErrMalformedPayload = errors.New("malformed telemetry payload")
	// ErrMissingDeviceIdent is returned when no known identifier key is present.
	ErrMissingDeviceIdent = errors.New("missing device identifier")
)

// identPaths are the known shapes for the device identifier, in priority
// order. Older firmware nests it under a device object, newer firmware
// sends a flat ident field.
var identPaths = []string{`device.imei`, `ident`, `imei`}

// fieldSpec binds one canonical record field to its source key candidates.
// Paths are gjson expressions; escaped dots match the literal flat keys
// (e.g. "position.latitude" as a single key) that some firmware emits
// alongside the nested object form.
type fieldSpec struct {
	paths []string
	apply func(rec *Record, v gjson.Result)
}

var fieldTable = []fieldSpec{
	{
		paths: []string{`position\.latitude`, `position.latitude`, `lat`},
		apply: func(rec *Record, v gjson.Result) { f := v.Float(); rec.Latitude = &f },
	},
	{
		paths: []string{`position\.longitude`, `position.longitude`, `lng`},
		apply: func(rec *Record, v gjson.Result) { f := v.Float(); rec.Longitude = &f },
	},
	{
		paths: []string{`battery\.level`, `battery.level`, `battery`},
		apply: func(rec *Record, v gjson.Result) { b := int(v.Int()); rec.Battery = &b },
	},
	{
		paths: []string{`position\.speed`, `position.speed`, `speed`},
		apply: func(rec *Record, v gjson.Result) { f := v.Float(); rec.Speed = &f },
	},
	{
		// Mileage is reported in kilometers; canonical unit is meters.
		paths: []string{`position\.mileage`, `position.mileage`, `mileage`},
		apply: func(rec *Record, v gjson.Result) {
			m := int64(math.Round(v.Float() * 1000))
			rec.Odometer = &m
		},
	},
	{
		paths: []string{`lock\.status`, `lock.status`, `locked`},
		apply: func(rec *Record, v gjson.Result) { b := truthy(v); rec.Locked = &b },
	},
	{
		paths: []string{`engine\.ignition\.status`, `engine.ignition.status`, `ignition`},
		apply: func(rec *Record, v gjson.Result) { b := truthy(v); rec.Ignition = &b },
	},
	{
		paths: []string{`timestamp`, `position\.timestamp`, `position.timestamp`},
		apply: func(rec *Record, v gjson.Result) {
			ts := time.Unix(int64(v.Float()), 0).UTC()
			rec.Timestamp = &ts
		},
	},
}

// Normalize maps a raw device payload onto a Record. It walks the alias
// table once per payload, taking the first candidate key that is present
// for each canonical field and omitting fields no candidate matched.
func Normalize(payload []byte) (*Record, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrMalformedPayload
	}
	doc := gjson.ParseBytes(payload)

	rec := &Record{}
	for _, path := range identPaths {
		if v := doc.Get(path); v.Exists() {
			rec.Ident = v.String()
			break
		}
	}
	if rec.Ident == "" {
		return nil, ErrMissingDeviceIdent
	}

	for _, spec := range fieldTable {
		for _, path := range spec.paths {
			if v := doc.Get(path); v.Exists() {
				spec.apply(rec, v)
				break
			}
		}
	}
	return rec, nil
}

// truthy interprets the 0/1 flags and booleans devices use for lock and
// ignition state.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	default:
		return v.Float() != 0
	}
}
